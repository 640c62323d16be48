package remote

import (
	"context"
	"time"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/store"
)

// Warner receives journal write failures.
type Warner interface {
	Warnf(format string, args ...any)
}

// JournalAdapter is a decorator that records every remote call as a sync
// event.
type JournalAdapter struct {
	inner Adapter
	repo  store.SyncEventRepo
	log   Warner
}

// WithJournal wraps an Adapter with sync event journaling.
func WithJournal(a Adapter, repo store.SyncEventRepo, log Warner) Adapter {
	return &JournalAdapter{inner: a, repo: repo, log: log}
}

func (j *JournalAdapter) FetchCourse(ctx context.Context, courseID course.CourseID) (*course.Course, map[course.ModuleID]bool, error) {
	start := time.Now()
	crs, done, err := j.inner.FetchCourse(ctx, courseID)
	j.record(ctx, OpFetchModules, courseID, "", start, err)
	return crs, done, err
}

func (j *JournalAdapter) FetchModuleCompletion(ctx context.Context, courseID course.CourseID) (map[course.ModuleID]bool, error) {
	start := time.Now()
	done, err := j.inner.FetchModuleCompletion(ctx, courseID)
	j.record(ctx, OpFetchModules, courseID, "", start, err)
	return done, err
}

func (j *JournalAdapter) FetchModuleQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) (*course.Quiz, error) {
	start := time.Now()
	q, err := j.inner.FetchModuleQuiz(ctx, courseID, moduleID)
	j.record(ctx, OpFetchQuiz, courseID, moduleID, start, err)
	return q, err
}

func (j *JournalAdapter) PersistModuleCompletion(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) error {
	start := time.Now()
	err := j.inner.PersistModuleCompletion(ctx, courseID, moduleID)
	j.record(ctx, OpPersistModule, courseID, moduleID, start, err)
	return err
}

func (j *JournalAdapter) SubmitQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID, quizID course.QuizID, sub course.Submission) (Score, error) {
	start := time.Now()
	score, err := j.inner.SubmitQuiz(ctx, courseID, moduleID, quizID, sub)
	j.record(ctx, OpSubmitQuiz, courseID, moduleID, start, err)
	return score, err
}

func (j *JournalAdapter) record(ctx context.Context, op Op, courseID course.CourseID, moduleID course.ModuleID, start time.Time, err error) {
	data := store.SyncEventData{
		Op:        string(op),
		CourseID:  string(courseID),
		ModuleID:  string(moduleID),
		Success:   err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		data.ErrorMessage = err.Error()
		if e, ok := AsError(err); ok {
			data.ErrorKind = string(e.Kind)
			data.Status = e.Status
		}
	}

	// The call's own context may already be cancelled; the row is still wanted.
	if logErr := j.repo.AppendSyncEvent(context.WithoutCancel(ctx), data); logErr != nil && j.log != nil {
		j.log.Warnf("failed to journal %s: %v", op, logErr)
	}
}
