package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"jacow_reports/internal/domain"
)

/********** mailing lists **********/

const mailingListsKey = "mailing-lists"

type MailingListService struct {
	client   domain.MailingListClient
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewMailingListService(c domain.MailingListClient, cache domain.Cache, ttl time.Duration) *MailingListService {
	return &MailingListService{client: c, cache: cache, cacheTTL: ttl}
}

// catalogue returns every known list; the result is cached.
func (s *MailingListService) catalogue(ctx context.Context) ([]domain.MailingList, error) {
	var lists []domain.MailingList
	if s.cache != nil {
		if ok, err := s.cache.Get(ctx, mailingListsKey, &lists); err == nil && ok {
			return lists, nil
		}
	}
	raw, err := s.client.ListLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mailing lists: %w", err)
	}
	lists = mapMailingLists(raw)
	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, mailingListsKey, lists, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Msg("cache mailing lists failed")
		}
	}
	return lists, nil
}

// Lists returns the catalogue with the user's subscription flags.
func (s *MailingListService) Lists(ctx context.Context, u domain.User) ([]domain.MailingList, error) {
	lists, err := s.catalogue(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.MemberLists(ctx, u.Email)
	if err != nil {
		return nil, fmt.Errorf("member lists of %s: %w", u.Email, err)
	}
	subscribed := map[int64]bool{}
	for _, l := range mapMailingLists(raw) {
		subscribed[l.ID] = true
	}
	out := make([]domain.MailingList, len(lists))
	for i, l := range lists {
		l.Subscribed = subscribed[l.ID]
		out[i] = l
	}
	return out, nil
}

func (s *MailingListService) Subscribe(ctx context.Context, u domain.User, listIDs []int64) (domain.SubscriptionOutcome, error) {
	return s.apply(ctx, u, listIDs, func(ctx context.Context, id int64) error {
		return s.client.Subscribe(ctx, id, u.Email, u.FullName())
	})
}

func (s *MailingListService) Unsubscribe(ctx context.Context, u domain.User, listIDs []int64) (domain.SubscriptionOutcome, error) {
	return s.apply(ctx, u, listIDs, func(ctx context.Context, id int64) error {
		return s.client.Unsubscribe(ctx, id, u.Email)
	})
}

// apply runs op per list; a failing list is reported and never aborts the rest.
func (s *MailingListService) apply(ctx context.Context, u domain.User, listIDs []int64, op func(context.Context, int64) error) (domain.SubscriptionOutcome, error) {
	var verr domain.ValidationError
	if u.Email == "" {
		verr.Add("email", "the user has no email address")
	}
	if len(listIDs) == 0 {
		verr.Add("lists_ids", "select at least one mailing list")
	}
	if err := verr.Err(); err != nil {
		return domain.SubscriptionOutcome{}, err
	}

	lists, err := s.catalogue(ctx)
	if err != nil {
		return domain.SubscriptionOutcome{}, err
	}
	known := make(map[int64]bool, len(lists))
	for _, l := range lists {
		known[l.ID] = true
	}

	out := domain.SubscriptionOutcome{Results: []domain.ListResult{}, Errors: []domain.ListError{}}
	seen := map[int64]bool{}
	for _, id := range listIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !known[id] {
			out.Errors = append(out.Errors, domain.ListError{ListID: id, Message: "unknown mailing list"})
			continue
		}
		if err := op(ctx, id); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Warn().Err(err).Int64("list", id).Str("email", u.Email).Msg("mailing list update failed")
			out.Errors = append(out.Errors, domain.ListError{ListID: id, Message: userMessage(err)})
			continue
		}
		out.Results = append(out.Results, domain.ListResult{ListID: id})
	}
	return out, nil
}

type userMessager interface{ UserMessage() string }

func userMessage(err error) string {
	var um userMessager
	switch {
	case errors.As(err, &um):
		return um.UserMessage()
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
		return "not allowed"
	}
	return err.Error()
}

/********** affiliations **********/

type AffiliationService struct {
	repo domain.AffiliationRepository
}

func NewAffiliationService(r domain.AffiliationRepository) *AffiliationService {
	return &AffiliationService{repo: r}
}

// Create stores a new affiliation; CountryCode must be an ISO 3166-1 alpha-2 country.
func (s *AffiliationService) Create(ctx context.Context, a domain.Affiliation) (domain.Affiliation, error) {
	a.Name = strings.TrimSpace(a.Name)
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.Postcode = strings.TrimSpace(a.Postcode)
	a.CountryCode = strings.ToUpper(strings.TrimSpace(a.CountryCode))

	var verr domain.ValidationError
	if a.Name == "" {
		verr.Add("name", "name is required")
	}
	if a.CountryCode != "" && !isCountry(a.CountryCode) {
		verr.Add("country_code", "%q is not an ISO 3166-1 country code", a.CountryCode)
	}
	if err := verr.Err(); err != nil {
		return domain.Affiliation{}, err
	}

	id, err := s.repo.CreateAffiliation(ctx, a)
	if err != nil {
		return domain.Affiliation{}, fmt.Errorf("create affiliation: %w", err)
	}
	a.ID = id
	return a, nil
}

func isCountry(code string) bool {
	if len(code) != 2 {
		return false
	}
	r, err := language.ParseRegion(code)
	return err == nil && r.IsCountry()
}

// ReplaceLinkAffiliations sets the ordered affiliations of a person link
// that belongs to eventID.
func (s *AffiliationService) ReplaceLinkAffiliations(ctx context.Context, eventID int64, kind domain.PersonLinkKind, linkID int64, ids []int64) error {
	var verr domain.ValidationError
	if kind != domain.AbstractPersonLink && kind != domain.ContributionPersonLink {
		verr.Add("kind", "unknown person link kind %q", kind)
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			verr.Add("affiliations", "affiliation %d is listed twice", id)
		}
		seen[id] = true
	}
	if err := verr.Err(); err != nil {
		return err
	}

	linkEvent, err := s.repo.PersonLinkEvent(ctx, kind, linkID)
	if err != nil {
		return err
	}
	if linkEvent != eventID {
		return domain.ErrNotFound
	}

	missing, err := s.repo.MissingAffiliations(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range missing {
		verr.Add("affiliations", "affiliation %d does not exist", id)
	}
	if err := verr.Err(); err != nil {
		return err
	}
	return s.repo.ReplacePersonAffiliations(ctx, kind, linkID, ids)
}

/********** peer-review managers **********/

type PeerReviewManagerService struct {
	users domain.UserRepository
}

func NewPeerReviewManagerService(r domain.UserRepository) *PeerReviewManagerService {
	return &PeerReviewManagerService{users: r}
}

type ImportResult struct {
	Granted []string `json:"granted"`
	Unknown []string `json:"unknown"`
}

// Import grants paper_manager to every user listed in the email column of r.
// Any malformed row fails the whole import before anything is granted.
func (s *PeerReviewManagerService) Import(ctx context.Context, eventID int64, r io.Reader) (ImportResult, error) {
	emails, err := readEmailColumn(r)
	if err != nil {
		return ImportResult{}, err
	}
	found, err := s.users.FindUsersByEmail(ctx, emails)
	if err != nil {
		return ImportResult{}, fmt.Errorf("find users: %w", err)
	}

	res := ImportResult{Granted: []string{}, Unknown: []string{}}
	var ids []int64
	for _, e := range emails {
		u, ok := found[e]
		if !ok {
			res.Unknown = append(res.Unknown, e)
			continue
		}
		ids = append(ids, u.ID)
		res.Granted = append(res.Granted, e)
	}
	if err := s.users.GrantEventPermission(ctx, eventID, ids, domain.PermissionPaperManager); err != nil {
		return ImportResult{}, fmt.Errorf("grant %s: %w", domain.PermissionPaperManager, err)
	}
	log.Info().Int64("event", eventID).Int("granted", len(res.Granted)).Int("unknown", len(res.Unknown)).
		Msg("peer-review managers imported")
	return res, nil
}

// readEmailColumn returns the distinct lower-cased addresses of the "email" column.
func readEmailColumn(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var verr domain.ValidationError
	header, err := cr.Read()
	if err == io.EOF {
		verr.Add("file", "the file is empty")
		return nil, verr.Err()
	}
	if err != nil {
		verr.Add("file", "not a valid CSV file: %v", err)
		return nil, verr.Err()
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), "email") {
			col = i
			break
		}
	}
	if col < 0 {
		verr.Add("file", `missing "email" column`)
		return nil, verr.Err()
	}

	var emails []string
	seen := map[string]bool{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			verr.Add("file", "not a valid CSV file: %v", err)
			break
		}
		line, _ := cr.FieldPos(0)
		field := fmt.Sprintf("row %d", line)
		if col >= len(rec) || strings.TrimSpace(rec[col]) == "" {
			if strings.TrimSpace(strings.Join(rec, "")) == "" {
				continue
			}
			verr.Add(field, "email is missing")
			continue
		}
		email := strings.TrimSpace(rec[col])
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			verr.Add(field, "%q is not a valid email address", email)
			continue
		}
		email = strings.ToLower(email)
		if !seen[email] {
			seen[email] = true
			emails = append(emails, email)
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return emails, nil
}

// Export writes the event's peer-review managers as CSV.
func (s *PeerReviewManagerService) Export(ctx context.Context, eventID int64, w io.Writer) error {
	users, err := s.users.ListEventPrincipals(ctx, eventID, domain.PermissionPaperManager)
	if err != nil {
		return fmt.Errorf("list managers: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Email"}); err != nil {
		return err
	}
	for _, u := range users {
		if err := cw.Write([]string{u.FullName(), u.Email}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
