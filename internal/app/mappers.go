package app

import (
	"encoding/json"
	"strconv"
	"strings"

	"jacow_reports/internal/domain"
)

/********** alias registries (single source of truth) **********/

var mailingListAliases = map[string][]string{
	"id":   {"id", "list_id", "listId"},
	"name": {"name", "title", "display_name", "list_name"},
}

var profileAliases = map[string][]string{
	"identifier":  {"identifier", "id", "jacow_id", "user_id"},
	"email":       {"email", "primary_email", "emails.primary"},
	"first_name":  {"first_name", "firstName", "given_name", "name.first"},
	"last_name":   {"last_name", "lastName", "family_name", "name.last"},
	"affiliation": {"affiliation", "affiliation.name", "institute", "organisation"},
	"phone":       {"phone", "telephone", "phone_number"},
	"address":     {"address", "postal_address", "address.line"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string (or integral number) at path, or "".
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

/********** mappers **********/

// mapMailingList maps one list payload; payloads without an id are skipped.
func mapMailingList(m map[string]any) (domain.MailingList, bool) {
	id := firstInt64Flexible(m, mailingListAliases["id"]...)
	if id == nil {
		return domain.MailingList{}, false
	}
	name := firstNonEmptyAlias(m, mailingListAliases, "name")
	if name == "" {
		name = "#" + strconv.FormatInt(*id, 10)
	}
	return domain.MailingList{ID: *id, Name: name}, true
}

func mapMailingLists(raw []map[string]any) []domain.MailingList {
	out := make([]domain.MailingList, 0, len(raw))
	for _, m := range raw {
		if l, ok := mapMailingList(m); ok {
			out = append(out, l)
		}
	}
	return out
}

// mapProfile maps a directory record; records without an identifier are rejected.
func mapProfile(m map[string]any) (domain.Profile, bool) {
	p := domain.Profile{
		Identifier:  firstNonEmptyAlias(m, profileAliases, "identifier"),
		Email:       strings.ToLower(firstNonEmptyAlias(m, profileAliases, "email")),
		FirstName:   firstNonEmptyAlias(m, profileAliases, "first_name"),
		LastName:    firstNonEmptyAlias(m, profileAliases, "last_name"),
		Affiliation: firstNonEmptyAlias(m, profileAliases, "affiliation"),
		Phone:       firstNonEmptyAlias(m, profileAliases, "phone"),
		Address:     firstNonEmptyAlias(m, profileAliases, "address"),
	}
	if p.Identifier == "" {
		return domain.Profile{}, false
	}
	if b, err := json.Marshal(m); err == nil {
		p.RawJSON = b
	}
	return p, true
}
