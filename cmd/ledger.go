package cmd

import (
	"context"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/progression"
	"github.com/abhisek/coursetrack/internal/store"
)

// storeLedger adapts the SQLite repos to the engine's ledger interfaces.
type storeLedger struct {
	lessons  store.LessonViewRepo
	pending  store.PendingRepo
	attempts store.QuizAttemptRepo
}

var (
	_ progression.LessonLedger    = (*storeLedger)(nil)
	_ progression.PendingLedger   = (*storeLedger)(nil)
	_ progression.AttemptRecorder = (*storeLedger)(nil)
	_ progression.QuizLedger      = (*storeLedger)(nil)
)

func newStoreLedger(st *store.Store) *storeLedger {
	return &storeLedger{
		lessons:  st.LessonViewRepo(),
		pending:  st.PendingRepo(),
		attempts: st.QuizAttemptRepo(),
	}
}

func (l *storeLedger) RecordLessonView(ctx context.Context, courseID course.CourseID, id course.LessonID) error {
	return l.lessons.RecordLessonView(ctx, string(courseID), string(id))
}

func (l *storeLedger) ViewedLessons(ctx context.Context, courseID course.CourseID) ([]course.LessonID, error) {
	views, err := l.lessons.LessonViews(ctx, string(courseID))
	if err != nil {
		return nil, err
	}
	ids := make([]course.LessonID, 0, len(views))
	for _, v := range views {
		ids = append(ids, course.LessonID(v.LessonID))
	}
	return ids, nil
}

func (l *storeLedger) AddPending(ctx context.Context, courseID course.CourseID, id course.ModuleID) error {
	return l.pending.AddPending(ctx, string(courseID), string(id))
}

func (l *storeLedger) RemovePending(ctx context.Context, courseID course.CourseID, id course.ModuleID) error {
	return l.pending.RemovePending(ctx, string(courseID), string(id))
}

func (l *storeLedger) Pending(ctx context.Context, courseID course.CourseID) ([]course.ModuleID, error) {
	rows, err := l.pending.Pending(ctx, string(courseID))
	if err != nil {
		return nil, err
	}
	ids := make([]course.ModuleID, 0, len(rows))
	for _, id := range rows {
		ids = append(ids, course.ModuleID(id))
	}
	return ids, nil
}

func (l *storeLedger) RecordQuizAttempt(ctx context.Context, a progression.Attempt) error {
	return l.attempts.AppendQuizAttempt(ctx, store.QuizAttemptData{
		CourseID:       string(a.CourseID),
		ModuleID:       string(a.ModuleID),
		QuizID:         string(a.QuizID),
		CorrectCount:   a.Record.CorrectCount,
		TotalQuestions: a.Record.TotalQuestions,
		ScorePercent:   a.Record.ScorePercent,
		Passed:         a.Record.Passed,
		Source:         string(a.Source),
		Discrepancy:    a.Discrepancy,
	})
}

func (l *storeLedger) PassedQuizzes(ctx context.Context, courseID course.CourseID) (map[course.ModuleID]course.QuizID, error) {
	rows, err := l.attempts.PassedQuizzes(ctx, string(courseID))
	if err != nil {
		return nil, err
	}
	passed := make(map[course.ModuleID]course.QuizID, len(rows))
	for moduleID, quizID := range rows {
		passed[course.ModuleID(moduleID)] = course.QuizID(quizID)
	}
	return passed, nil
}
