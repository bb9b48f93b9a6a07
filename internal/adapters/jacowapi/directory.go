package jacowapi

import (
	"context"
	"net/url"
)

// Directory is the central profile directory client.
type Directory struct{ c *Client }

func NewDirectory(base, key string, rps int) (*Directory, error) {
	c, err := New("directory", base, key, rps)
	if err != nil {
		return nil, err
	}
	return &Directory{c: c}, nil
}

func (d *Directory) GetProfile(ctx context.Context, identifier string) (map[string]any, error) {
	var out map[string]any
	return out, d.c.do(ctx, "GET", "profile", "/profiles/"+url.PathEscape(identifier), nil, &out)
}

// SearchByEmail runs an exact email search.
func (d *Directory) SearchByEmail(ctx context.Context, email string) ([]map[string]any, error) {
	q := url.Values{"email": {email}, "exact": {"1"}}
	var raw any
	if err := d.c.do(ctx, "GET", "search", "/profiles?"+q.Encode(), nil, &raw); err != nil {
		return nil, err
	}
	return unwrapList(raw, "results"), nil
}
