package quiz

import (
	"errors"
	"fmt"

	"github.com/abhisek/coursetrack/internal/course"
)

// ErrNoAnswerKey is returned when the client-side quiz payload carries no
// answer flags, so no local score can be computed.
var ErrNoAnswerKey = errors.New("quiz has no client-side answer key")

// ValidationError indicates a malformed submission: it references a
// question or option that the quiz definition does not contain.
type ValidationError struct {
	QuizID     course.QuizID
	QuestionID course.QuestionID
	OptionID   course.OptionID
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.OptionID != "" {
		return fmt.Sprintf("quiz %q: question %q: option %q: %s", e.QuizID, e.QuestionID, e.OptionID, e.Reason)
	}
	return fmt.Sprintf("quiz %q: question %q: %s", e.QuizID, e.QuestionID, e.Reason)
}

// ErrInvalidScore indicates a score whose counts are impossible
// (negative, or more correct answers than questions).
type ErrInvalidScore struct {
	CorrectCount   int
	TotalQuestions int
}

func (e *ErrInvalidScore) Error() string {
	return fmt.Sprintf("invalid score %d/%d", e.CorrectCount, e.TotalQuestions)
}
