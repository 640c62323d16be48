// Package quiz scores quiz submissions and reconciles client-side
// estimates against the score of record returned by the backend.
package quiz

import (
	"github.com/abhisek/coursetrack/internal/course"
)

// DefaultPassThreshold is the minimum score percentage that passes a quiz.
const DefaultPassThreshold = 70.0

// Result is the outcome of scoring one submission.
type Result struct {
	CorrectCount   int
	TotalQuestions int
	ScorePercent   float64
	Passed         bool
}

// Evaluator scores submissions against a pass threshold. The zero value
// uses DefaultPassThreshold.
type Evaluator struct {
	PassThreshold float64
}

// NewEvaluator creates an Evaluator with the given pass threshold.
func NewEvaluator(threshold float64) Evaluator {
	return Evaluator{PassThreshold: threshold}
}

// Evaluate scores a submission with the default pass threshold.
func Evaluate(q *course.Quiz, sub course.Submission) (Result, error) {
	return Evaluator{}.Evaluate(q, sub)
}

func (e Evaluator) threshold() float64 {
	if e.PassThreshold <= 0 {
		return DefaultPassThreshold
	}
	return e.PassThreshold
}

// Evaluate scores the submission against the quiz definition.
//
// A question is correct when the chosen option carries answer=true; any
// option so marked is accepted. Unanswered questions count as incorrect.
// A submission naming an unknown question or option fails with a
// *ValidationError, and a quiz without an answer key fails with
// ErrNoAnswerKey. Evaluate is pure.
func (e Evaluator) Evaluate(q *course.Quiz, sub course.Submission) (Result, error) {
	if q == nil {
		return Result{}, ErrNoAnswerKey
	}
	if err := CheckSubmission(q, sub); err != nil {
		return Result{}, err
	}
	if !q.HasAnswerKey() {
		return Result{}, ErrNoAnswerKey
	}

	correct := 0
	for _, question := range q.Questions {
		chosen, ok := sub[question.ID]
		if !ok {
			continue
		}
		if opt := question.Option(chosen); opt != nil && opt.IsCorrect() {
			correct++
		}
	}
	return e.Score(correct, len(q.Questions))
}

// Score builds a Result from raw counts. A quiz with no questions has
// nothing to fail and scores 100.
func (e Evaluator) Score(correct, total int) (Result, error) {
	if correct < 0 || total < 0 || correct > total {
		return Result{}, &ErrInvalidScore{CorrectCount: correct, TotalQuestions: total}
	}
	if total == 0 {
		return Result{CorrectCount: 0, TotalQuestions: 0, ScorePercent: 100, Passed: true}, nil
	}
	pct := 100 * float64(correct) / float64(total)
	return Result{
		CorrectCount:   correct,
		TotalQuestions: total,
		ScorePercent:   pct,
		Passed:         pct >= e.threshold(),
	}, nil
}

// CheckSubmission verifies that every answered question and chosen option
// exists in the quiz.
func CheckSubmission(q *course.Quiz, sub course.Submission) error {
	for qid, oid := range sub {
		question := q.Question(qid)
		if question == nil {
			return &ValidationError{QuizID: q.ID, QuestionID: qid, Reason: "question not in quiz"}
		}
		if question.Option(oid) == nil {
			return &ValidationError{QuizID: q.ID, QuestionID: qid, OptionID: oid, Reason: "option not in question"}
		}
	}
	return nil
}
