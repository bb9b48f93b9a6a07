package reporting

import (
	"fmt"

	"jacow_reports/internal/domain"
)

const URLColumn = "URL"

// URLFunc resolves the absolute display URL of an abstract.
type URLFunc func(domain.Abstract) string

// QuestionColumn formats a statistics column title.
func QuestionColumn(title, label string) string {
	return fmt.Sprintf("Question %s (%s)", title, label)
}

var (
	ratingLabels = []string{"total count", "AVG score", "STD deviation"}
	answerLabels = []string{"True", "False", "None"}
)

// QuestionColumns lists the statistics columns for the active questions.
func QuestionColumns(questions []domain.Question) []string {
	var cols []string
	for _, q := range domain.ActiveQuestions(questions) {
		var labels []string
		switch q.(type) {
		case domain.RatingQuestion:
			labels = ratingLabels
		case domain.BoolQuestion:
			labels = answerLabels
		}
		for _, l := range labels {
			cols = append(cols, QuestionColumn(q.Info().Title, l))
		}
	}
	return cols
}

// ExtendSheet appends person, question statistics and URL columns to a base
// sheet whose rows are index-aligned with abstracts. Rows are filled in place.
func ExtendSheet(base Sheet, abstracts []domain.Abstract, questions []domain.Question, url URLFunc) Sheet {
	cols := make([]string, 0, len(base.Columns)+len(personColumns)+1)
	cols = append(cols, base.Columns...)
	cols = append(cols, PersonColumns()...)
	cols = append(cols, QuestionColumns(questions)...)
	cols = append(cols, URLColumn)

	rows := base.Rows
	for len(rows) < len(abstracts) {
		rows = append(rows, Row{})
	}
	for i, a := range abstracts {
		row := rows[i]
		if row == nil {
			row = Row{}
			rows[i] = row
		}
		for title, v := range personCells(a.Persons) {
			row[title] = v
		}
		for _, st := range AggregateRatings(questions, a.Reviews) {
			fillStats(row, st)
		}
		row[URLColumn] = url(a)
	}
	return Sheet{Columns: cols, Rows: rows}
}

func fillStats(row Row, st QuestionStats) {
	title := st.Question.Info().Title
	switch st.Question.(type) {
	case domain.RatingQuestion:
		row[QuestionColumn(title, ratingLabels[0])] = st.Count
		row[QuestionColumn(title, ratingLabels[1])] = optional(st.Avg)
		row[QuestionColumn(title, ratingLabels[2])] = optional(st.StdDev)
	case domain.BoolQuestion:
		row[QuestionColumn(title, answerLabels[0])] = st.True
		row[QuestionColumn(title, answerLabels[1])] = st.False
		row[QuestionColumn(title, answerLabels[2])] = st.None
	}
}

// optional yields the value or "" so empty cells differ from a zero mean.
func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
