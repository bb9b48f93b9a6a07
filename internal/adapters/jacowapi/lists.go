package jacowapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// MailingLists is the mailing-list service client.
type MailingLists struct{ c *Client }

func NewMailingLists(base, key string, rps int) (*MailingLists, error) {
	c, err := New("mailinglists", base, key, rps)
	if err != nil {
		return nil, err
	}
	return &MailingLists{c: c}, nil
}

// ListLists returns every list, accepting either a bare array or {"lists": [...]}.
func (m *MailingLists) ListLists(ctx context.Context) ([]map[string]any, error) {
	var raw any
	if err := m.c.do(ctx, "GET", "lists", "/lists", nil, &raw); err != nil {
		return nil, err
	}
	return unwrapList(raw, "lists"), nil
}

func (m *MailingLists) MemberLists(ctx context.Context, email string) ([]map[string]any, error) {
	var raw any
	err := m.c.do(ctx, "GET", "member_lists", "/members/"+url.PathEscape(email)+"/lists", nil, &raw)
	if err != nil {
		// unknown member: subscribed to nothing
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return unwrapList(raw, "lists"), nil
}

func (m *MailingLists) Subscribe(ctx context.Context, listID int64, email, name string) error {
	body := map[string]string{"email": email, "name": name}
	return m.c.do(ctx, "POST", "subscribe", fmt.Sprintf("/lists/%d/members", listID), body, nil)
}

func (m *MailingLists) Unsubscribe(ctx context.Context, listID int64, email string) error {
	return m.c.do(ctx, "DELETE", "unsubscribe", fmt.Sprintf("/lists/%d/members/%s", listID, url.PathEscape(email)), nil, nil)
}

// unwrapList accepts []any or an object holding the array under key.
func unwrapList(raw any, key string) []map[string]any {
	if obj, ok := raw.(map[string]any); ok {
		raw = obj[key]
	}
	items, _ := raw.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
