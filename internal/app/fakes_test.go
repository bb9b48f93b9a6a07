package app_test

import (
	"context"
	"encoding/json"
	"sync"

	"jacow_reports/internal/domain"
)

// ---- fakes ----

type fakeEvents struct {
	ev        domain.Event
	questions []domain.Question
	fields    []domain.ContributionField
	abstracts []domain.Abstract

	mu       sync.Mutex
	loads    int
	lastIDs  []int64
	eventErr error
}

func (f *fakeEvents) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	if f.eventErr != nil {
		return domain.Event{}, f.eventErr
	}
	return f.ev, nil
}
func (f *fakeEvents) ListQuestions(ctx context.Context, id int64) ([]domain.Question, error) {
	return f.questions, nil
}
func (f *fakeEvents) ListContributionFields(ctx context.Context, id int64) ([]domain.ContributionField, error) {
	return f.fields, nil
}
func (f *fakeEvents) ListAbstracts(ctx context.Context, eventID int64, ids []int64) ([]domain.Abstract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	f.lastIDs = ids
	if len(ids) == 0 {
		return f.abstracts, nil
	}
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Abstract
	for _, a := range f.abstracts {
		if want[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeCache round-trips values through JSON like the Redis adapter.
type fakeCache struct {
	store map[string][]byte
	sets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.sets++
	c.store[key] = b
	return nil
}

// expire drops an entry the way a TTL would.
func (c *fakeCache) expire(key string) { delete(c.store, key) }

type fakeLists struct {
	lists    []map[string]any
	member   []map[string]any
	failOn   map[int64]error
	calls    []int64
	listHits int
}

func (f *fakeLists) ListLists(ctx context.Context) ([]map[string]any, error) {
	f.listHits++
	return f.lists, nil
}
func (f *fakeLists) MemberLists(ctx context.Context, email string) ([]map[string]any, error) {
	return f.member, nil
}
func (f *fakeLists) Subscribe(ctx context.Context, id int64, email, name string) error {
	f.calls = append(f.calls, id)
	return f.failOn[id]
}
func (f *fakeLists) Unsubscribe(ctx context.Context, id int64, email string) error {
	f.calls = append(f.calls, id)
	return f.failOn[id]
}

type fakeAffiliations struct {
	nextID    int64
	existing  map[int64]bool
	linkEvent map[int64]int64
	replaced  map[int64][]int64
	created   []domain.Affiliation
}

func (f *fakeAffiliations) CreateAffiliation(ctx context.Context, a domain.Affiliation) (int64, error) {
	f.nextID++
	f.created = append(f.created, a)
	return f.nextID, nil
}
func (f *fakeAffiliations) MissingAffiliations(ctx context.Context, ids []int64) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		if !f.existing[id] {
			out = append(out, id)
		}
	}
	return out, nil
}
func (f *fakeAffiliations) PersonLinkEvent(ctx context.Context, kind domain.PersonLinkKind, linkID int64) (int64, error) {
	ev, ok := f.linkEvent[linkID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return ev, nil
}
func (f *fakeAffiliations) ReplacePersonAffiliations(ctx context.Context, kind domain.PersonLinkKind, linkID int64, ids []int64) error {
	if f.replaced == nil {
		f.replaced = map[int64][]int64{}
	}
	f.replaced[linkID] = ids
	return nil
}

type fakeUsers struct {
	byEmail  map[string]domain.User
	granted  []int64
	grants   int
	managers []domain.User
}

func (f *fakeUsers) GetUser(ctx context.Context, id int64) (domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}
func (f *fakeUsers) FindUsersByEmail(ctx context.Context, emails []string) (map[string]domain.User, error) {
	out := map[string]domain.User{}
	for _, e := range emails {
		if u, ok := f.byEmail[e]; ok {
			out[e] = u
		}
	}
	return out, nil
}
func (f *fakeUsers) GrantEventPermission(ctx context.Context, eventID int64, ids []int64, perm string) error {
	f.grants++
	f.granted = append(f.granted, ids...)
	return nil
}
func (f *fakeUsers) ListEventPrincipals(ctx context.Context, eventID int64, perm string) ([]domain.User, error) {
	return f.managers, nil
}

type fakeSync struct {
	enabled  bool
	linked   []domain.UserIdentity
	unlinked []domain.User
	mu       sync.Mutex
	updated  map[int64]domain.Profile
	added    []domain.Identity
}

func (f *fakeSync) SettingEnabled(ctx context.Context, name string) (bool, error) { return f.enabled, nil }
func (f *fakeSync) ListIdentityUsers(ctx context.Context, provider string) ([]domain.UserIdentity, error) {
	return f.linked, nil
}
func (f *fakeSync) ListUsersWithoutIdentity(ctx context.Context, provider string) ([]domain.User, error) {
	return f.unlinked, nil
}
func (f *fakeSync) UpdateProfile(ctx context.Context, userID int64, p domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = map[int64]domain.Profile{}
	}
	f.updated[userID] = p
	return nil
}
func (f *fakeSync) AddIdentity(ctx context.Context, id domain.Identity) error {
	f.added = append(f.added, id)
	return nil
}

type fakeDirectory struct {
	profiles map[string]map[string]any
	search   map[string][]map[string]any
}

func (f *fakeDirectory) GetProfile(ctx context.Context, identifier string) (map[string]any, error) {
	p, ok := f.profiles[identifier]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
func (f *fakeDirectory) SearchByEmail(ctx context.Context, email string) ([]map[string]any, error) {
	return f.search[email], nil
}
