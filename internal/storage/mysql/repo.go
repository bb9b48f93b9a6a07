package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jacow_reports/internal/domain"
)

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetEvent(ctx context.Context, eventID int64) (domain.Event, error) {
	var ev domain.Event
	if err := r.db.QueryRowContext(ctx, getEventSQL, eventID).Scan(&ev.ID, &ev.Title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, err
	}

	groups, err := r.db.QueryContext(ctx, listTrackGroupsSQL, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	defer groups.Close()
	for groups.Next() {
		var g domain.TrackGroup
		if err := groups.Scan(&g.ID, &g.Title, &g.Position); err != nil {
			return domain.Event{}, err
		}
		ev.Groups = append(ev.Groups, g)
	}
	if err := groups.Err(); err != nil {
		return domain.Event{}, err
	}

	tracks, err := r.db.QueryContext(ctx, listTracksSQL, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	defer tracks.Close()
	for tracks.Next() {
		var t domain.Track
		var group sql.NullInt64
		if err := tracks.Scan(&t.ID, &t.Title, &t.Code, &group, &t.Position); err != nil {
			return domain.Event{}, err
		}
		if group.Valid {
			gid := group.Int64
			t.GroupID = &gid
		}
		ev.Tracks = append(ev.Tracks, t)
	}
	return ev, tracks.Err()
}

func (r *Repo) ListQuestions(ctx context.Context, eventID int64) ([]domain.Question, error) {
	rows, err := r.db.QueryContext(ctx, listQuestionsSQL, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var info domain.QuestionInfo
		var kind string
		var noScore bool
		if err := rows.Scan(&info.ID, &info.Title, &kind, &noScore, &info.Position, &info.Deleted); err != nil {
			return nil, err
		}
		switch kind {
		case "rating":
			out = append(out, domain.RatingQuestion{QuestionInfo: info, NoScore: noScore})
		case "bool":
			out = append(out, domain.BoolQuestion{QuestionInfo: info})
		case "text":
			out = append(out, domain.TextQuestion{QuestionInfo: info})
		default:
			return nil, fmt.Errorf("question %d: unknown field type %q", info.ID, kind)
		}
	}
	return out, rows.Err()
}

func (r *Repo) ListContributionFields(ctx context.Context, eventID int64) ([]domain.ContributionField, error) {
	rows, err := r.db.QueryContext(ctx, listFieldsSQL, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ContributionField
	for rows.Next() {
		var f domain.ContributionField
		if err := rows.Scan(&f.ID, &f.Title); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListAbstracts loads the abstracts first, then their children with one
// IN (...) query per relation.
func (r *Repo) ListAbstracts(ctx context.Context, eventID int64, ids []int64) ([]domain.Abstract, error) {
	q := listAbstractsSQL
	args := []any{eventID}
	if len(ids) > 0 {
		q += " AND a.id IN (" + inPlaceholders(len(ids)) + ")"
		args = append(args, int64Args(ids)...)
	}
	rows, err := r.db.QueryContext(ctx, q+abstractsOrderSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Abstract
	for rows.Next() {
		var a domain.Abstract
		var (
			state                 string
			accepted              sql.NullInt64
			submittedT, acceptedT sql.NullString
			modified              sql.NullTime
		)
		if err := rows.Scan(
			&a.ID, &a.FriendlyID, &a.EventID, &a.Title, &a.Description, &state, &a.Submitter,
			&accepted, &submittedT, &acceptedT, &a.SubmittedAt, &modified,
		); err != nil {
			return nil, err
		}
		a.State = domain.AbstractState(state)
		if accepted.Valid {
			id := accepted.Int64
			a.AcceptedTrackID = &id
		}
		if submittedT.Valid {
			s := submittedT.String
			a.SubmittedContribType = &s
		}
		if acceptedT.Valid {
			s := acceptedT.String
			a.AcceptedContribType = &s
		}
		if modified.Valid {
			t := modified.Time.UTC()
			a.ModifiedAt = &t
		}
		a.SubmittedAt = a.SubmittedAt.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	idx := make(map[int64]*domain.Abstract, len(out))
	abstractIDs := make([]int64, len(out))
	for i := range out {
		idx[out[i].ID] = &out[i]
		abstractIDs[i] = out[i].ID
	}
	for _, load := range []func(context.Context, []int64, map[int64]*domain.Abstract) error{
		r.loadSubmittedTracks,
		r.loadFieldValues,
		r.loadPersons,
		r.loadReviews,
	} {
		if err := load(ctx, abstractIDs, idx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) loadSubmittedTracks(ctx context.Context, ids []int64, idx map[int64]*domain.Abstract) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(submittedTracksSQL, inPlaceholders(len(ids))), int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("submitted tracks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var abstractID, trackID int64
		if err := rows.Scan(&abstractID, &trackID); err != nil {
			return err
		}
		if a := idx[abstractID]; a != nil {
			a.SubmittedTrackIDs = append(a.SubmittedTrackIDs, trackID)
		}
	}
	return rows.Err()
}

func (r *Repo) loadFieldValues(ctx context.Context, ids []int64, idx map[int64]*domain.Abstract) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(fieldValuesSQL, inPlaceholders(len(ids))), int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("field values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var abstractID, fieldID int64
		var data string
		if err := rows.Scan(&abstractID, &fieldID, &data); err != nil {
			return err
		}
		if a := idx[abstractID]; a != nil {
			if a.Fields == nil {
				a.Fields = map[int64]string{}
			}
			a.Fields[fieldID] = data
		}
	}
	return rows.Err()
}

func (r *Repo) loadPersons(ctx context.Context, ids []int64, idx map[int64]*domain.Abstract) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(personLinksSQL, inPlaceholders(len(ids))), int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("person links: %w", err)
	}
	defer rows.Close()

	type ref struct {
		abstractID int64
		pos        int
	}
	links := map[int64]ref{}
	var linkIDs []int64
	for rows.Next() {
		var p domain.PersonLink
		var abstractID int64
		var authorType int
		if err := rows.Scan(&p.ID, &abstractID, &p.FullName, &p.Email, &authorType, &p.IsSpeaker, &p.DisplayOrder); err != nil {
			return err
		}
		p.AuthorType = domain.AuthorType(authorType)
		a := idx[abstractID]
		if a == nil {
			continue
		}
		a.Persons = append(a.Persons, p)
		links[p.ID] = ref{abstractID: abstractID, pos: len(a.Persons) - 1}
		linkIDs = append(linkIDs, p.ID)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(linkIDs) == 0 {
		return nil
	}

	affRows, err := r.db.QueryContext(ctx, fmt.Sprintf(personAffiliationsSQL, inPlaceholders(len(linkIDs))), int64Args(linkIDs)...)
	if err != nil {
		return fmt.Errorf("person affiliations: %w", err)
	}
	defer affRows.Close()
	for affRows.Next() {
		var linkID int64
		var f domain.Affiliation
		if err := affRows.Scan(&linkID, &f.ID, &f.Name, &f.Street, &f.City, &f.Postcode, &f.CountryCode); err != nil {
			return err
		}
		ref, ok := links[linkID]
		if !ok {
			continue
		}
		p := &idx[ref.abstractID].Persons[ref.pos]
		p.Affiliations = append(p.Affiliations, f)
	}
	return affRows.Err()
}

func (r *Repo) loadReviews(ctx context.Context, ids []int64, idx map[int64]*domain.Abstract) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(reviewsSQL, inPlaceholders(len(ids))), int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("reviews: %w", err)
	}
	defer rows.Close()

	type ref struct {
		abstractID int64
		pos        int
	}
	reviews := map[int64]ref{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.AbstractID, &rv.TrackID, &rv.UserID, &rv.Reviewer); err != nil {
			return err
		}
		a := idx[rv.AbstractID]
		if a == nil {
			continue
		}
		a.Reviews = append(a.Reviews, rv)
		reviews[rv.ID] = ref{abstractID: rv.AbstractID, pos: len(a.Reviews) - 1}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(reviews) == 0 {
		return nil
	}

	ratingRows, err := r.db.QueryContext(ctx, fmt.Sprintf(ratingsSQL, inPlaceholders(len(ids))), int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("ratings: %w", err)
	}
	defer ratingRows.Close()
	for ratingRows.Next() {
		var reviewID int64
		var rt domain.Rating
		var score sql.NullFloat64
		var answer sql.NullBool
		if err := ratingRows.Scan(&reviewID, &rt.QuestionID, &score, &answer); err != nil {
			return err
		}
		if score.Valid {
			f := score.Float64
			rt.Score = &f
		}
		if answer.Valid {
			b := answer.Bool
			rt.Answer = &b
		}
		ref, ok := reviews[reviewID]
		if !ok {
			continue
		}
		rv := &idx[ref.abstractID].Reviews[ref.pos]
		rv.Ratings = append(rv.Ratings, rt)
	}
	return ratingRows.Err()
}
