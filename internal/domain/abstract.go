package domain

import "time"

type AbstractState string

const (
	StateSubmitted AbstractState = "submitted"
	StateWithdrawn AbstractState = "withdrawn"
	StateAccepted  AbstractState = "accepted"
	StateRejected  AbstractState = "rejected"
	StateMerged    AbstractState = "merged"
	StateDuplicate AbstractState = "duplicate"
	StateInvited   AbstractState = "invited"
)

// AbstractStates lists every state in display order.
var AbstractStates = []AbstractState{
	StateSubmitted, StateWithdrawn, StateAccepted, StateRejected,
	StateMerged, StateDuplicate, StateInvited,
}

type Abstract struct {
	ID                   int64
	FriendlyID           int
	EventID              int64
	Title                string
	Description          string
	State                AbstractState
	Submitter            string
	SubmittedTrackIDs    []int64
	AcceptedTrackID      *int64
	SubmittedContribType *string
	AcceptedContribType  *string
	SubmittedAt          time.Time
	ModifiedAt           *time.Time
	Persons              []PersonLink
	Reviews              []Review
	Fields               map[int64]string // custom field id -> value
}

// AuthorType mirrors the platform's author_type column.
type AuthorType int

const (
	AuthorNone AuthorType = iota
	AuthorPrimary
	AuthorSecondary
)

type PersonLink struct {
	ID           int64
	FullName     string
	Email        string
	AuthorType   AuthorType
	IsSpeaker    bool
	DisplayOrder int
	Affiliations []Affiliation // ordered by display order
}

type Affiliation struct {
	ID          int64
	Name        string
	Street      string
	City        string
	Postcode    string
	CountryCode string
}

// PersonLinkKind distinguishes abstract from contribution person links.
type PersonLinkKind string

const (
	AbstractPersonLink     PersonLinkKind = "abstract"
	ContributionPersonLink PersonLinkKind = "contribution"
)

// ContributionField is a custom abstract/contribution field usable as an export column.
type ContributionField struct {
	ID    int64
	Title string
}
