package course

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCourse is wrapped by every structural validation failure.
var ErrInvalidCourse = errors.New("invalid course")

// Validate performs all structural checks on the course.
// Returns a combined error describing all problems found, or nil if valid.
func Validate(c *Course) error {
	if c == nil {
		return fmt.Errorf("%w: nil course", ErrInvalidCourse)
	}

	var errs []string
	if c.ID == "" {
		errs = append(errs, "course has empty ID")
	}

	moduleIDs := make(map[ModuleID]bool, len(c.Modules))
	lessonOwner := make(map[LessonID]ModuleID)
	quizOwner := make(map[QuizID]ModuleID)

	for _, m := range c.Modules {
		if m.ID == "" {
			errs = append(errs, "module with empty ID")
			continue
		}
		if moduleIDs[m.ID] {
			errs = append(errs, fmt.Sprintf("duplicate module ID: %q", m.ID))
		}
		moduleIDs[m.ID] = true

		// A lesson belongs to exactly one module.
		for _, l := range m.Lessons {
			if l.ID == "" {
				errs = append(errs, fmt.Sprintf("module %q has a lesson with empty ID", m.ID))
				continue
			}
			if owner, ok := lessonOwner[l.ID]; ok {
				errs = append(errs, fmt.Sprintf("lesson %q appears in modules %q and %q", l.ID, owner, m.ID))
				continue
			}
			lessonOwner[l.ID] = m.ID
			if l.DurationMinutes < 0 {
				errs = append(errs, fmt.Sprintf("lesson %q has negative duration", l.ID))
			}
		}

		if m.Quiz != nil {
			if owner, ok := quizOwner[m.Quiz.ID]; ok {
				errs = append(errs, fmt.Sprintf("quiz %q attached to modules %q and %q", m.Quiz.ID, owner, m.ID))
			}
			quizOwner[m.Quiz.ID] = m.ID
			errs = append(errs, validateQuiz(m.Quiz)...)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalidCourse, strings.Join(errs, "\n  "))
	}
	return nil
}

func validateQuiz(q *Quiz) []string {
	var errs []string
	if q.ID == "" {
		errs = append(errs, "quiz with empty ID")
	}
	questionIDs := make(map[QuestionID]bool, len(q.Questions))
	for _, question := range q.Questions {
		if questionIDs[question.ID] {
			errs = append(errs, fmt.Sprintf("quiz %q: duplicate question ID %q", q.ID, question.ID))
		}
		questionIDs[question.ID] = true

		if len(question.Options) == 0 {
			errs = append(errs, fmt.Sprintf("quiz %q: question %q has no options", q.ID, question.ID))
		}
		optionIDs := make(map[OptionID]bool, len(question.Options))
		for _, o := range question.Options {
			if optionIDs[o.ID] {
				errs = append(errs, fmt.Sprintf("quiz %q: question %q has duplicate option %q", q.ID, question.ID, o.ID))
			}
			optionIDs[o.ID] = true
		}
	}
	return errs
}
