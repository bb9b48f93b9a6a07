package domain

// QuestionInfo holds the attributes shared by every review question kind.
type QuestionInfo struct {
	ID       int64
	Title    string
	Position int
	Deleted  bool
}

// Question is one of RatingQuestion, BoolQuestion or TextQuestion.
type Question interface {
	Info() QuestionInfo
	isQuestion()
}

// RatingQuestion is answered with a numeric score.
type RatingQuestion struct {
	QuestionInfo
	NoScore bool // answers are collected but never scored
}

// BoolQuestion is answered yes/no, or left unanswered.
type BoolQuestion struct {
	QuestionInfo
}

// TextQuestion is answered with free text and never appears in statistics.
type TextQuestion struct {
	QuestionInfo
}

func (q RatingQuestion) Info() QuestionInfo { return q.QuestionInfo }
func (q BoolQuestion) Info() QuestionInfo   { return q.QuestionInfo }
func (q TextQuestion) Info() QuestionInfo   { return q.QuestionInfo }

func (RatingQuestion) isQuestion() {}
func (BoolQuestion) isQuestion()   {}
func (TextQuestion) isQuestion()   {}

// Rating is one answer to one question within a review.
// Score applies to rating questions and Answer to boolean ones; nil is "absent".
type Rating struct {
	QuestionID int64
	Score      *float64
	Answer     *bool
}

type Review struct {
	ID         int64
	AbstractID int64
	TrackID    int64
	UserID     int64
	Reviewer   string
	Ratings    []Rating
}

// ActiveQuestions drops deleted questions and keeps declaration order.
func ActiveQuestions(qs []Question) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if !q.Info().Deleted {
			out = append(out, q)
		}
	}
	return out
}
