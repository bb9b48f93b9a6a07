package domain

import "context"

type EventRepository interface {
	GetEvent(ctx context.Context, eventID int64) (Event, error)
	// ListQuestions returns every abstract review question, deleted ones included,
	// in declaration order.
	ListQuestions(ctx context.Context, eventID int64) ([]Question, error)
	// ListAbstracts loads abstracts with persons, affiliations and reviews.
	// An empty ids slice selects every abstract of the event.
	ListAbstracts(ctx context.Context, eventID int64, ids []int64) ([]Abstract, error)
	ListContributionFields(ctx context.Context, eventID int64) ([]ContributionField, error)
}

type AffiliationRepository interface {
	CreateAffiliation(ctx context.Context, a Affiliation) (int64, error)
	MissingAffiliations(ctx context.Context, ids []int64) ([]int64, error)
	PersonLinkEvent(ctx context.Context, kind PersonLinkKind, linkID int64) (int64, error)
	ReplacePersonAffiliations(ctx context.Context, kind PersonLinkKind, linkID int64, affiliationIDs []int64) error
}

type UserRepository interface {
	GetUser(ctx context.Context, id int64) (User, error)
	FindUsersByEmail(ctx context.Context, emails []string) (map[string]User, error)
	GrantEventPermission(ctx context.Context, eventID int64, userIDs []int64, permission string) error
	ListEventPrincipals(ctx context.Context, eventID int64, permission string) ([]User, error)
}

// SyncRepository backs the periodic profile synchronisation.
type SyncRepository interface {
	SettingEnabled(ctx context.Context, name string) (bool, error)
	ListIdentityUsers(ctx context.Context, provider string) ([]UserIdentity, error)
	ListUsersWithoutIdentity(ctx context.Context, provider string) ([]User, error)
	UpdateProfile(ctx context.Context, userID int64, p Profile) error
	// AddIdentity stores the identity and clears the user's pending flag.
	AddIdentity(ctx context.Context, id Identity) error
}

type UserIdentity struct {
	User     User
	Identity Identity
}

// MailingListClient talks to the mailing-list REST API. Payloads are returned
// raw and mapped in the app layer.
type MailingListClient interface {
	ListLists(ctx context.Context) ([]map[string]any, error)
	MemberLists(ctx context.Context, email string) ([]map[string]any, error)
	Subscribe(ctx context.Context, listID int64, email, name string) error
	Unsubscribe(ctx context.Context, listID int64, email string) error
}

// ProfileDirectory is the central JACoW profile database.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, identifier string) (map[string]any, error)
	SearchByEmail(ctx context.Context, email string) ([]map[string]any, error)
}

// Cache stores JSON-encoded values. Entries only leave through TTL expiry,
// so cached statistics may lag writes by up to the configured TTL.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
}
