package remote

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/coursetrack/internal/course"
)

// RetryAdapter is a decorator that retries transient failures of idempotent
// operations with exponential backoff and jitter.
type RetryAdapter struct {
	inner  Adapter
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps an Adapter with retry logic. A MaxAttempts below one is
// treated as one.
func WithRetry(a Adapter, cfg RetryConfig) Adapter {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryAdapter{inner: a, config: cfg, sleep: sleepCtx}
}

func (r *RetryAdapter) FetchCourse(ctx context.Context, courseID course.CourseID) (*course.Course, map[course.ModuleID]bool, error) {
	var (
		crs  *course.Course
		done map[course.ModuleID]bool
	)
	err := r.run(ctx, OpFetchModules, func() error {
		var err error
		crs, done, err = r.inner.FetchCourse(ctx, courseID)
		return err
	})
	return crs, done, err
}

func (r *RetryAdapter) FetchModuleCompletion(ctx context.Context, courseID course.CourseID) (map[course.ModuleID]bool, error) {
	var done map[course.ModuleID]bool
	err := r.run(ctx, OpFetchModules, func() error {
		var err error
		done, err = r.inner.FetchModuleCompletion(ctx, courseID)
		return err
	})
	return done, err
}

func (r *RetryAdapter) FetchModuleQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) (*course.Quiz, error) {
	var q *course.Quiz
	err := r.run(ctx, OpFetchQuiz, func() error {
		var err error
		q, err = r.inner.FetchModuleQuiz(ctx, courseID, moduleID)
		return err
	})
	return q, err
}

func (r *RetryAdapter) PersistModuleCompletion(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) error {
	return r.run(ctx, OpPersistModule, func() error {
		return r.inner.PersistModuleCompletion(ctx, courseID, moduleID)
	})
}

func (r *RetryAdapter) SubmitQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID, quizID course.QuizID, sub course.Submission) (Score, error) {
	var score Score
	err := r.run(ctx, OpSubmitQuiz, func() error {
		var err error
		score, err = r.inner.SubmitQuiz(ctx, courseID, moduleID, quizID, sub)
		return err
	})
	return score, err
}

func (r *RetryAdapter) run(ctx context.Context, op Op, call func() error) error {
	var lastErr error

	for attempt := range r.config.MaxAttempts {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		if !op.Idempotent() || !shouldRetry(err) {
			return err
		}

		if attempt == r.config.MaxAttempts-1 {
			break
		}

		if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
			return &Error{Kind: KindNetwork, Op: op, Err: err}
		}
	}

	return lastErr
}

func shouldRetry(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	return e.Retryable()
}

// backoff computes the wait duration for the given attempt.
func (r *RetryAdapter) backoff(attempt int) time.Duration {
	mult := r.config.Multiplier
	if mult <= 0 {
		mult = 1
	}
	wait := float64(r.config.InitialWait) * math.Pow(mult, float64(attempt))
	if r.config.MaxWait > 0 && wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
