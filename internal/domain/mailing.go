package domain

type MailingList struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Subscribed bool   `json:"subscribed"`
}

type ListResult struct {
	ListID int64 `json:"list_id"`
}

type ListError struct {
	ListID  int64  `json:"list_id"`
	Message string `json:"message"`
}

// SubscriptionOutcome reports per-list results of a (un)subscribe request.
type SubscriptionOutcome struct {
	Results []ListResult `json:"results"`
	Errors  []ListError  `json:"errors"`
}
