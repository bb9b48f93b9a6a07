package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jacow_reports/internal/domain"
)

var affiliationTables = map[domain.PersonLinkKind]string{
	domain.AbstractPersonLink:     "abstract_affiliations",
	domain.ContributionPersonLink: "contribution_affiliations",
}

var linkEventSQL = map[domain.PersonLinkKind]string{
	domain.AbstractPersonLink:     abstractLinkEventSQL,
	domain.ContributionPersonLink: contributionLinkEventSQL,
}

func (r *Repo) CreateAffiliation(ctx context.Context, a domain.Affiliation) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertAffiliationSQL, a.Name, a.Street, a.City, a.Postcode, a.CountryCode)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MissingAffiliations returns the ids that do not exist, in input order.
func (r *Repo) MissingAffiliations(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(existingAffiliationsSQL, inPlaceholders(len(ids))), int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *Repo) PersonLinkEvent(ctx context.Context, kind domain.PersonLinkKind, linkID int64) (int64, error) {
	q, ok := linkEventSQL[kind]
	if !ok {
		return 0, fmt.Errorf("person link kind %q: %w", kind, domain.ErrInvalid)
	}
	var eventID int64
	if err := r.db.QueryRowContext(ctx, q, linkID).Scan(&eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return eventID, nil
}

// ReplacePersonAffiliations swaps the link's affiliations in one transaction;
// display order follows the slice order.
func (r *Repo) ReplacePersonAffiliations(ctx context.Context, kind domain.PersonLinkKind, linkID int64, affiliationIDs []int64) (err error) {
	table, ok := affiliationTables[kind]
	if !ok {
		return fmt.Errorf("person link kind %q: %w", kind, domain.ErrInvalid)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(deleteLinkAffiliationsSQL, table), linkID); err != nil {
		return err
	}
	if len(affiliationIDs) > 0 {
		values := make([]string, 0, len(affiliationIDs))
		args := make([]any, 0, len(affiliationIDs)*3)
		for i, id := range affiliationIDs {
			values = append(values, "(?,?,?)")
			args = append(args, linkID, id, i)
		}
		q := fmt.Sprintf(insertLinkAffiliationsPrefix, table) + strings.Join(values, ",")
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanUser reads the userColumns projection, plus any extra destinations.
func scanUser(s scanner, extra ...any) (domain.User, error) {
	var u domain.User
	dest := append([]any{&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Affiliation, &u.Phone, &u.Address, &u.Pending}, extra...)
	err := s.Scan(dest...)
	return u, err
}

func (r *Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getUserSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// FindUsersByEmail matches case-insensitively; keys are lower-cased emails.
func (r *Repo) FindUsersByEmail(ctx context.Context, emails []string) (map[string]domain.User, error) {
	out := map[string]domain.User{}
	if len(emails) == 0 {
		return out, nil
	}
	args := make([]any, len(emails))
	for i, e := range emails {
		args[i] = strings.ToLower(e)
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(usersByEmailSQL, inPlaceholders(len(emails))), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[strings.ToLower(u.Email)] = u
	}
	return out, rows.Err()
}

func (r *Repo) GrantEventPermission(ctx context.Context, eventID int64, userIDs []int64, permission string) error {
	if len(userIDs) == 0 {
		return nil
	}
	values := make([]string, 0, len(userIDs))
	args := make([]any, 0, len(userIDs)*3)
	for _, id := range userIDs {
		values = append(values, "(?,?,?)")
		args = append(args, eventID, id, permission)
	}
	_, err := r.db.ExecContext(ctx, insertPrincipalsPrefix+strings.Join(values, ","), args...)
	return err
}

func (r *Repo) ListEventPrincipals(ctx context.Context, eventID int64, permission string) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, listPrincipalsSQL, eventID, permission)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SettingEnabled reads a JSON boolean plugin setting; missing means false.
func (r *Repo) SettingEnabled(ctx context.Context, name string) (bool, error) {
	var raw []byte
	if err := r.db.QueryRowContext(ctx, getSettingSQL, name).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		return false, fmt.Errorf("setting %s: %w", name, err)
	}
	return enabled, nil
}

func (r *Repo) ListIdentityUsers(ctx context.Context, provider string) ([]domain.UserIdentity, error) {
	rows, err := r.db.QueryContext(ctx, identityUsersSQL, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserIdentity
	for rows.Next() {
		var id domain.Identity
		var data []byte
		u, err := scanUser(rows, &id.Provider, &id.Identifier, &data)
		if err != nil {
			return nil, err
		}
		id.UserID = u.ID
		if len(data) > 0 {
			id.Data = append([]byte(nil), data...)
		}
		out = append(out, domain.UserIdentity{User: u, Identity: id})
	}
	return out, rows.Err()
}

func (r *Repo) ListUsersWithoutIdentity(ctx context.Context, provider string) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, usersWithoutIdentitySQL, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateProfile(ctx context.Context, userID int64, p domain.Profile) error {
	_, err := r.db.ExecContext(ctx, updateProfileSQL,
		p.FirstName, p.LastName, p.Affiliation, p.Phone, p.Address, userID)
	return err
}

func (r *Repo) AddIdentity(ctx context.Context, id domain.Identity) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, insertIdentitySQL, id.UserID, id.Provider, id.Identifier, valJSON(id.Data)); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, clearPendingSQL, id.UserID); err != nil {
		return err
	}
	return tx.Commit()
}
