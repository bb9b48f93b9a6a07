package reporting

import (
	"strconv"
	"strings"

	"jacow_reports/internal/domain"
)

// Row maps a column title to a cell value (string, int, float64 or time.Time).
type Row map[string]any

// Sheet is an ordered column list plus one Row per exported abstract.
type Sheet struct {
	Columns []string
	Rows    []Row
}

// ExportConfig selects the optional base columns of an abstract export.
type ExportConfig struct {
	StaticItemIDs []string
	DynamicItems  []int64 // contribution field ids
}

type staticItem struct {
	id      string
	columns []string
	fill    func(sheetContext, domain.Abstract, Row)
}

type sheetContext struct {
	event     domain.Event
	questions []domain.Question
}

var staticItems = []staticItem{
	{"state", []string{"State"}, func(_ sheetContext, a domain.Abstract, r Row) {
		r["State"] = stateTitle(a.State)
	}},
	{"submitter", []string{"Submitter"}, func(_ sheetContext, a domain.Abstract, r Row) {
		r["Submitter"] = a.Submitter
	}},
	{"authors", []string{"Primary authors", "Co-authors"}, func(_ sheetContext, a domain.Abstract, r Row) {
		r["Primary authors"] = personNames(a.Persons, isPrimary)
		r["Co-authors"] = personNames(a.Persons, isSecondary)
	}},
	{"accepted_track", []string{"Accepted track"}, func(c sheetContext, a domain.Abstract, r Row) {
		r["Accepted track"] = ""
		if a.AcceptedTrackID != nil {
			r["Accepted track"] = trackTitles(c.event, []int64{*a.AcceptedTrackID})
		}
	}},
	{"submitted_for_tracks", []string{"Submitted for tracks"}, func(c sheetContext, a domain.Abstract, r Row) {
		r["Submitted for tracks"] = trackTitles(c.event, a.SubmittedTrackIDs)
	}},
	{"reviewed_for_tracks", []string{"Reviewed for tracks"}, func(c sheetContext, a domain.Abstract, r Row) {
		r["Reviewed for tracks"] = trackTitles(c.event, reviewedTracks(a.Reviews))
	}},
	{"accepted_contrib_type", []string{"Accepted type"}, func(_ sheetContext, a domain.Abstract, r Row) {
		r["Accepted type"] = deref(a.AcceptedContribType)
	}},
	{"submitted_contrib_type", []string{"Submitted type"}, func(_ sheetContext, a domain.Abstract, r Row) {
		r["Submitted type"] = deref(a.SubmittedContribType)
	}},
	{"score", []string{"Score"}, func(c sheetContext, a domain.Abstract, r Row) {
		r["Score"] = ""
		if s, ok := AbstractScore(c.questions, a.Reviews); ok {
			r["Score"] = s
		}
	}},
	{"submitted_dt", []string{"Submission date"}, func(_ sheetContext, a domain.Abstract, r Row) {
		r["Submission date"] = a.SubmittedAt
	}},
	{"modified_dt", []string{"Modification date"}, func(_ sheetContext, a domain.Abstract, r Row) {
		r["Modification date"] = ""
		if a.ModifiedAt != nil {
			r["Modification date"] = *a.ModifiedAt
		}
	}},
	{"description", []string{"Content"}, func(_ sheetContext, a domain.Abstract, r Row) {
		r["Content"] = a.Description
	}},
}

// BaseSheet builds the standard abstract sheet: Id and Title, then the selected
// static items in registry order, then custom fields in the requested order.
// Unknown static item ids and field ids are ignored.
func BaseSheet(ev domain.Event, questions []domain.Question, fields []domain.ContributionField, abstracts []domain.Abstract, cfg ExportConfig) Sheet {
	wanted := make(map[string]bool, len(cfg.StaticItemIDs))
	for _, id := range cfg.StaticItemIDs {
		wanted[id] = true
	}
	var items []staticItem
	for _, it := range staticItems {
		if wanted[it.id] {
			items = append(items, it)
		}
	}
	byID := make(map[int64]domain.ContributionField, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}
	var dynamic []domain.ContributionField
	for _, id := range cfg.DynamicItems {
		if f, ok := byID[id]; ok {
			dynamic = append(dynamic, f)
		}
	}

	sheet := Sheet{Columns: []string{"Id", "Title"}}
	for _, it := range items {
		sheet.Columns = append(sheet.Columns, it.columns...)
	}
	for _, f := range dynamic {
		sheet.Columns = append(sheet.Columns, f.Title)
	}

	c := sheetContext{event: ev, questions: questions}
	sheet.Rows = make([]Row, len(abstracts))
	for i, a := range abstracts {
		row := Row{"Id": a.FriendlyID, "Title": a.Title}
		for _, it := range items {
			it.fill(c, a, row)
		}
		for _, f := range dynamic {
			row[f.Title] = a.Fields[f.ID]
		}
		sheet.Rows[i] = row
	}
	return sheet
}

// AbstractScore averages the per-review scores. A review's score is the mean
// of its scorable ratings; reviews without one are left out.
func AbstractScore(questions []domain.Question, reviews []domain.Review) (float64, bool) {
	scorable := make(map[int64]bool)
	for _, q := range domain.ActiveQuestions(questions) {
		if rq, ok := q.(domain.RatingQuestion); ok && !rq.NoScore {
			scorable[rq.ID] = true
		}
	}
	var reviewScores []float64
	for _, rv := range reviews {
		var scores []float64
		for _, r := range rv.Ratings {
			if scorable[r.QuestionID] && r.Score != nil {
				scores = append(scores, *r.Score)
			}
		}
		if len(scores) > 0 {
			reviewScores = append(reviewScores, mean(scores))
		}
	}
	if len(reviewScores) == 0 {
		return 0, false
	}
	return round1(mean(reviewScores)), true
}

func stateTitle(s domain.AbstractState) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func personNames(persons []domain.PersonLink, holds func(domain.PersonLink) bool) string {
	var names []string
	for _, p := range persons {
		if holds(p) {
			names = append(names, p.FullName)
		}
	}
	return strings.Join(names, cellSeparator)
}

func trackTitles(ev domain.Event, ids []int64) string {
	titles := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := ev.TrackByID(id); ok {
			titles = append(titles, t.Title)
		} else {
			titles = append(titles, "#"+strconv.FormatInt(id, 10))
		}
	}
	return strings.Join(titles, cellSeparator)
}

func reviewedTracks(reviews []domain.Review) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, rv := range reviews {
		if !seen[rv.TrackID] {
			seen[rv.TrackID] = true
			ids = append(ids, rv.TrackID)
		}
	}
	return ids
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
