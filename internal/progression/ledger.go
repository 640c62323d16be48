package progression

import (
	"context"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/quiz"
)

// Logger is the leveled logger the engine writes to. *log.Logger from
// labstack/gommon satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// LessonLedger persists lesson views locally. Lesson completion has no
// server endpoint, so views are replayed from the ledger on Load.
type LessonLedger interface {
	RecordLessonView(ctx context.Context, courseID course.CourseID, lessonID course.LessonID) error
	ViewedLessons(ctx context.Context, courseID course.CourseID) ([]course.LessonID, error)
}

// PendingLedger persists module completions that failed to sync.
type PendingLedger interface {
	AddPending(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) error
	RemovePending(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) error
	Pending(ctx context.Context, courseID course.CourseID) ([]course.ModuleID, error)
}

// Attempt is one scored quiz submission.
type Attempt struct {
	CourseID course.CourseID
	ModuleID course.ModuleID
	QuizID   course.QuizID
	quiz.Reconciliation
}

// AttemptRecorder records quiz attempts.
type AttemptRecorder interface {
	RecordQuizAttempt(ctx context.Context, a Attempt) error
}

// QuizLedger reads back server-scored quiz passes. Passes are replayed on
// Load, so a quiz passed before the module's last lesson still counts.
type QuizLedger interface {
	PassedQuizzes(ctx context.Context, courseID course.CourseID) (map[course.ModuleID]course.QuizID, error)
}
