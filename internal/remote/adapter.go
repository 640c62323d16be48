// Package remote is the boundary between the progression engine and the
// course REST backend.
//
// Every Adapter method returns either a nil error or a *Error carrying a
// Kind, so callers can branch on failures without inspecting transport
// details.
package remote

import (
	"context"
	"time"

	"github.com/abhisek/coursetrack/internal/course"
)

// Adapter fetches and persists course progression state.
type Adapter interface {
	// FetchCourse returns the course structure (modules and lessons, quizzes
	// unresolved) together with the server's module completion flags.
	FetchCourse(ctx context.Context, courseID course.CourseID) (*course.Course, map[course.ModuleID]bool, error)

	// FetchModuleCompletion returns the server's module completion flags.
	FetchModuleCompletion(ctx context.Context, courseID course.CourseID) (map[course.ModuleID]bool, error)

	// FetchModuleQuiz resolves the module's quiz. Returns (nil, nil) when
	// the module has no quiz.
	FetchModuleQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) (*course.Quiz, error)

	// PersistModuleCompletion marks the module completed. Idempotent.
	PersistModuleCompletion(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) error

	// SubmitQuiz records a quiz attempt and returns the server's score.
	SubmitQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID, quizID course.QuizID, sub course.Submission) (Score, error)
}

// Score is the server's authoritative count for a quiz attempt.
type Score struct {
	CorrectCount   int
	TotalQuestions int
}

// Config configures the HTTP adapter.
type Config struct {
	BaseURL string
	Token   string

	// Timeout bounds a single HTTP request. Default: 15s.
	Timeout time.Duration

	Retry RetryConfig
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 15 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 200 * time.Millisecond,
			MaxWait:     2 * time.Second,
			Multiplier:  2.0,
		},
	}
}
