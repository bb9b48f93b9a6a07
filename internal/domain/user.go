package domain

type User struct {
	ID          int64
	Email       string
	FirstName   string
	LastName    string
	Affiliation string
	Phone       string
	Address     string
	Pending     bool
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Identity links a user to an account at an external identity provider.
type Identity struct {
	UserID     int64
	Provider   string
	Identifier string
	Data       []byte // provider payload as JSON
}

// Profile is a user record as known by the central profile directory.
type Profile struct {
	Identifier  string
	Email       string
	FirstName   string
	LastName    string
	Affiliation string
	Phone       string
	Address     string
	RawJSON     []byte
}

const PermissionPaperManager = "paper_manager"
