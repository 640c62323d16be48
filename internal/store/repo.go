package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit    int       // max results (0 = unlimited)
	After    int64     // sequence > After
	From     time.Time // timestamp >= From
	CourseID string    // empty matches every course
}

// SyncEventData captures a single remote call.
type SyncEventData struct {
	Op           string
	CourseID     string
	ModuleID     string
	Success      bool
	ErrorKind    string
	ErrorMessage string
	Status       int
	LatencyMs    int64
}

// SyncEvent is a stored SyncEventData.
type SyncEvent struct {
	Sequence  int64
	Timestamp time.Time
	SessionID string
	SyncEventData
}

// SyncEventRepo journals remote calls.
type SyncEventRepo interface {
	// AppendSyncEvent records one remote call.
	AppendSyncEvent(ctx context.Context, data SyncEventData) error

	// SyncEvents returns events newest first.
	SyncEvents(ctx context.Context, opts QueryOpts) ([]SyncEvent, error)
}

// QuizAttemptData captures one scored quiz attempt.
type QuizAttemptData struct {
	CourseID       string
	ModuleID       string
	QuizID         string
	CorrectCount   int
	TotalQuestions int
	ScorePercent   float64
	Passed         bool
	Source         string // "server" or "local"
	Discrepancy    bool
}

// QuizAttempt is a stored QuizAttemptData.
type QuizAttempt struct {
	Sequence  int64
	Timestamp time.Time
	SessionID string
	QuizAttemptData
}

// QuizStat summarizes the attempts of one module's quiz.
type QuizStat struct {
	ModuleID    string
	Attempts    int
	BestPercent float64
	Passed      bool
	LastAttempt time.Time
}

// QuizAttemptRepo records quiz attempts.
type QuizAttemptRepo interface {
	AppendQuizAttempt(ctx context.Context, data QuizAttemptData) error

	// QuizAttempts returns the attempts for a module, oldest first.
	QuizAttempts(ctx context.Context, courseID, moduleID string) ([]QuizAttempt, error)

	// QuizStats summarizes attempts per module, ordered by module ID.
	QuizStats(ctx context.Context, courseID string) ([]QuizStat, error)

	// PassedQuizzes maps each module with a server-scored pass to the quiz
	// that was passed. Local provisional scores are not included.
	PassedQuizzes(ctx context.Context, courseID string) (map[string]string, error)
}

// LessonView is a lesson the learner has opened.
type LessonView struct {
	CourseID      string
	LessonID      string
	FirstViewedAt time.Time
}

// LessonViewRepo is the local ledger of viewed lessons. Lesson completion
// has no server endpoint.
type LessonViewRepo interface {
	// RecordLessonView is idempotent; the first view time is kept.
	RecordLessonView(ctx context.Context, courseID, lessonID string) error

	LessonViews(ctx context.Context, courseID string) ([]LessonView, error)
}

// PendingRepo tracks module completions that failed to persist remotely.
type PendingRepo interface {
	// AddPending is idempotent.
	AddPending(ctx context.Context, courseID, moduleID string) error

	RemovePending(ctx context.Context, courseID, moduleID string) error

	// Pending returns module IDs ordered by when they were first added.
	Pending(ctx context.Context, courseID string) ([]string, error)
}
