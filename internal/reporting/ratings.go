package reporting

import (
	"math"
	"strconv"

	"jacow_reports/internal/domain"
)

// QuestionStats summarises the ratings one abstract received for one question.
// Rating questions fill Count, Avg and StdDev; boolean questions fill the
// True/False/None tallies.
type QuestionStats struct {
	Question domain.Question

	Count  int
	Avg    *float64 // nil when there is nothing to average
	StdDev *float64 // nil with fewer than two scores

	True  int
	False int
	None  int
}

// AggregateRatings computes statistics for every active rating and boolean
// question, in declaration order. Text questions and deleted questions are
// skipped; ratings for questions not in the list are ignored.
func AggregateRatings(questions []domain.Question, reviews []domain.Review) []QuestionStats {
	byQuestion := ratingsByQuestion(reviews)
	out := make([]QuestionStats, 0, len(questions))
	for _, q := range domain.ActiveQuestions(questions) {
		ratings := byQuestion[q.Info().ID]
		switch q := q.(type) {
		case domain.RatingQuestion:
			out = append(out, scoreStats(q, ratings))
		case domain.BoolQuestion:
			out = append(out, answerStats(q, ratings))
		}
	}
	return out
}

func ratingsByQuestion(reviews []domain.Review) map[int64][]domain.Rating {
	m := make(map[int64][]domain.Rating)
	for _, rv := range reviews {
		for _, r := range rv.Ratings {
			m[r.QuestionID] = append(m[r.QuestionID], r)
		}
	}
	return m
}

func scoreStats(q domain.RatingQuestion, ratings []domain.Rating) QuestionStats {
	st := QuestionStats{Question: q}
	if q.NoScore {
		return st
	}
	scores := make([]float64, 0, len(ratings))
	for _, r := range ratings {
		if r.Score != nil {
			scores = append(scores, *r.Score)
		}
	}
	st.Count = len(scores)
	if st.Count > 0 {
		avg := round1(mean(scores))
		st.Avg = &avg
	}
	if st.Count >= 2 {
		sd := round1(pstdev(scores))
		st.StdDev = &sd
	}
	return st
}

func answerStats(q domain.BoolQuestion, ratings []domain.Rating) QuestionStats {
	st := QuestionStats{Question: q}
	for _, r := range ratings {
		switch {
		case r.Answer == nil:
			st.None++
		case *r.Answer:
			st.True++
		default:
			st.False++
		}
	}
	return st
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// pstdev is the population standard deviation (divides by N).
func pstdev(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// round1 rounds to one decimal using the exact binary value, ties to even.
func round1(x float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	if err != nil {
		return math.Round(x*10) / 10
	}
	return v
}
