package progression

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/coursetrack/internal/completion"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/course/coursetest"
	"github.com/abhisek/coursetrack/internal/quiz"
	"github.com/abhisek/coursetrack/internal/remote"
)

// memLedger is an in-memory LessonLedger, PendingLedger, AttemptRecorder
// and QuizLedger.
type memLedger struct {
	mu       sync.Mutex
	lessons  []course.LessonID
	pending  []course.ModuleID
	removed  []course.ModuleID
	attempts []Attempt
}

func (l *memLedger) RecordLessonView(_ context.Context, _ course.CourseID, id course.LessonID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range l.lessons {
		if v == id {
			return nil
		}
	}
	l.lessons = append(l.lessons, id)
	return nil
}

func (l *memLedger) ViewedLessons(context.Context, course.CourseID) ([]course.LessonID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]course.LessonID(nil), l.lessons...), nil
}

func (l *memLedger) AddPending(_ context.Context, _ course.CourseID, id course.ModuleID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range l.pending {
		if v == id {
			return nil
		}
	}
	l.pending = append(l.pending, id)
	return nil
}

func (l *memLedger) RemovePending(_ context.Context, _ course.CourseID, id course.ModuleID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed = append(l.removed, id)
	kept := l.pending[:0]
	for _, v := range l.pending {
		if v != id {
			kept = append(kept, v)
		}
	}
	l.pending = kept
	return nil
}

func (l *memLedger) Pending(context.Context, course.CourseID) ([]course.ModuleID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]course.ModuleID(nil), l.pending...), nil
}

func (l *memLedger) RecordQuizAttempt(_ context.Context, a Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, a)
	return nil
}

func (l *memLedger) PassedQuizzes(context.Context, course.CourseID) (map[course.ModuleID]course.QuizID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	passed := make(map[course.ModuleID]course.QuizID)
	for _, a := range l.attempts {
		if a.Record.Passed && a.Source == quiz.SourceServer {
			passed[a.ModuleID] = a.QuizID
		}
	}
	return passed, nil
}

// recordingLogger keeps every line by level.
type recordingLogger struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (r *recordingLogger) add(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lines == nil {
		r.lines = make(map[string][]string)
	}
	r.lines[level] = append(r.lines[level], fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Debugf(f string, a ...any) { r.add("debug", f, a...) }
func (r *recordingLogger) Infof(f string, a ...any)  { r.add("info", f, a...) }
func (r *recordingLogger) Warnf(f string, a ...any)  { r.add("warn", f, a...) }
func (r *recordingLogger) Errorf(f string, a ...any) { r.add("error", f, a...) }

func (r *recordingLogger) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines[level])
}

func newEngine(t *testing.T, mock *remote.MockAdapter, c *course.Course, opts Options) *Engine {
	t.Helper()
	opts.CheckInvariants = true
	e, err := New(mock, c, opts)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	out, err := e.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, out.Violations)
	return e
}

func apply(t *testing.T, e *Engine, ev Event) Outcome {
	t.Helper()
	out, err := e.Apply(context.Background(), ev)
	require.NoError(t, err)
	require.Empty(t, out.Violations)
	return out
}

// quizCourse has one module with a single lesson and a ten-question quiz.
func quizCourse() *course.Course {
	return &course.Course{
		ID: "c-quiz",
		Modules: []course.Module{{
			ID:        "m-q",
			Lessons:   []course.Lesson{{ID: "l-q"}},
			Quiz:      coursetest.TenQuestionQuiz("q-10", 10),
			QuizKnown: true,
		}},
	}
}

func TestCascade_TwoModuleCourse(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	out := apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})
	assert.Empty(t, out.ModulesCompleted)

	out = apply(t, e, LessonViewed{ModuleID: coursetest.ModuleA, LessonID: coursetest.LessonA2})
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, out.ModulesCompleted)
	assert.False(t, out.CourseCompleted)

	snap := e.Snapshot()
	assert.True(t, snap.ModuleCompleted(coursetest.ModuleA))
	assert.False(t, snap.CourseCompleted(coursetest.CourseID))
	assert.True(t, mock.Completed(coursetest.ModuleA))

	out = apply(t, e, LessonViewed{LessonID: coursetest.LessonB1})
	assert.Empty(t, out.ModulesCompleted, "module B still needs its quiz")

	out = apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, QuizID: coursetest.QuizB, Submission: coursetest.AllCorrect()})
	require.NotNil(t, out.Quiz)
	assert.True(t, out.Quiz.Record.Passed)
	assert.Equal(t, quiz.SourceServer, out.Quiz.Source)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleB}, out.ModulesCompleted)
	assert.True(t, out.CourseCompleted)

	snap = e.Snapshot()
	assert.True(t, snap.QuizCompleted(coursetest.ModuleB))
	assert.True(t, snap.ModuleCompleted(coursetest.ModuleB))
	assert.True(t, snap.CourseCompleted(coursetest.CourseID))
	assert.Empty(t, e.Violations())
}

func TestCascade_QuizBeforeLessons(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	out := apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})
	assert.Empty(t, out.ModulesCompleted, "lessons are still unviewed")
	assert.True(t, e.Snapshot().QuizCompleted(coursetest.ModuleB))

	out = apply(t, e, LessonViewed{LessonID: coursetest.LessonB1})
	assert.Equal(t, []course.ModuleID{coursetest.ModuleB}, out.ModulesCompleted)
}

func TestCascade_TransitionsRecorded(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})
	out := apply(t, e, LessonViewed{LessonID: coursetest.LessonA2})
	assert.Equal(t, []Transition{
		{Kind: KindLesson, ID: string(coursetest.LessonA2), Trigger: TriggerLessonViewed},
		{Kind: KindModule, ID: string(coursetest.ModuleA), Trigger: TriggerCascade},
	}, out.Transitions)

	out = apply(t, e, LessonViewed{LessonID: coursetest.LessonA2})
	assert.Empty(t, out.Transitions, "viewing a lesson twice changes nothing")
}

func TestQuizRetry(t *testing.T) {
	c := quizCourse()
	mock := remote.NewMockAdapter(c)
	e := newEngine(t, mock, c, Options{})
	q := c.Modules[0].Quiz

	apply(t, e, LessonViewed{LessonID: "l-q"})

	out := apply(t, e, QuizSubmitted{ModuleID: "m-q", Submission: coursetest.Answers(q, 5)})
	require.NotNil(t, out.Quiz)
	assert.Equal(t, 50.0, out.Quiz.Record.ScorePercent)
	assert.False(t, out.Quiz.Record.Passed)
	assert.False(t, e.Snapshot().QuizCompleted("m-q"))
	assert.False(t, e.Snapshot().ModuleCompleted("m-q"))

	out = apply(t, e, QuizSubmitted{ModuleID: "m-q", Submission: coursetest.Answers(q, 8)})
	assert.Equal(t, 80.0, out.Quiz.Record.ScorePercent)
	assert.True(t, out.Quiz.Record.Passed)
	assert.True(t, e.Snapshot().QuizCompleted("m-q"))
	assert.True(t, out.CourseCompleted)
}

func TestQuizRetry_CustomThreshold(t *testing.T) {
	c := quizCourse()
	e := newEngine(t, remote.NewMockAdapter(c), c, Options{Evaluator: quiz.NewEvaluator(90)})
	q := c.Modules[0].Quiz

	out := apply(t, e, QuizSubmitted{ModuleID: "m-q", Submission: coursetest.Answers(q, 8)})
	assert.False(t, out.Quiz.Record.Passed)
	out = apply(t, e, QuizSubmitted{ModuleID: "m-q", Submission: coursetest.Answers(q, 9)})
	assert.True(t, out.Quiz.Record.Passed)
}

func TestMonotonicity(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonB1})
	apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})
	require.True(t, e.Snapshot().ModuleCompleted(coursetest.ModuleB))

	events := []Event{
		QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.HalfCorrect()},
		QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: course.Submission{}},
		LessonViewed{LessonID: coursetest.LessonB1},
		QuizPassed{ModuleID: coursetest.ModuleB},
	}
	for _, ev := range events {
		out := apply(t, e, ev)
		assert.Empty(t, out.ModulesCompleted)
		snap := e.Snapshot()
		assert.True(t, snap.ModuleCompleted(coursetest.ModuleB), "after %T", ev)
		assert.True(t, snap.QuizCompleted(coursetest.ModuleB), "after %T", ev)
	}
	assert.Equal(t, 1, mock.PersistCount(coursetest.ModuleB))
}

func TestIdempotentPersist(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.FailNext(remote.OpPersistModule, errors.New("refused"))
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})
	apply(t, e, LessonViewed{LessonID: coursetest.LessonA2})
	require.Equal(t, []course.ModuleID{coursetest.ModuleA}, e.Pending())

	out, err := e.RetrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, out.Synced)
	first := e.Snapshot()

	// Persisting an already-completed module again changes nothing.
	require.NoError(t, mock.PersistModuleCompletion(context.Background(), coursetest.CourseID, coursetest.ModuleA))
	out, err = e.RetrySync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Synced)
	assert.Empty(t, out.SyncFailed)
	assert.True(t, first.Equal(e.Snapshot()))

	_, err = e.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, e.Snapshot().ModuleCompleted(coursetest.ModuleA))
}

func TestSyncFailure_KeepsOptimisticState(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.FailNext(remote.OpPersistModule, &remote.Error{Kind: remote.KindUnauthorized, Op: remote.OpPersistModule, Status: 401, Err: errors.New("expired")})
	log := &recordingLogger{}
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Logger: log})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})
	out := apply(t, e, LessonViewed{LessonID: coursetest.LessonA2})

	assert.True(t, out.Failed())
	require.Len(t, out.SyncFailed, 1)
	assert.Equal(t, remote.OpPersistModule, out.SyncFailed[0].Op)
	assert.Equal(t, coursetest.ModuleA, out.SyncFailed[0].ModuleID)
	assert.Equal(t, remote.KindUnauthorized, out.SyncFailed[0].Err.Kind)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, out.ModulesCompleted)

	assert.True(t, e.Snapshot().ModuleCompleted(coursetest.ModuleA), "local state is not rolled back")
	assert.False(t, mock.Completed(coursetest.ModuleA))
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, e.Pending())
	assert.Positive(t, log.count("warn"))

	out, err := e.RetrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, out.Synced)
	assert.True(t, mock.Completed(coursetest.ModuleA))
	assert.Empty(t, e.Pending())
}

func TestRetrySync_StillFailing(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.FailNext(remote.OpPersistModule, errors.New("refused"))
	mock.FailNext(remote.OpPersistModule, errors.New("refused again"))
	ledger := &memLedger{}
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Pending: ledger})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})
	apply(t, e, LessonViewed{LessonID: coursetest.LessonA2})
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, ledger.pending)

	out, err := e.RetrySync(context.Background())
	require.NoError(t, err)
	require.Len(t, out.SyncFailed, 1)
	assert.Equal(t, remote.KindNetwork, out.SyncFailed[0].Err.Kind)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, e.Pending())

	out, err = e.RetrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, out.Synced)
	assert.Empty(t, ledger.pending)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, ledger.removed)
}

func TestQuizSubmit_ServerScoreIsRecord(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.AddScore(remote.Score{CorrectCount: 0, TotalQuestions: 2})
	log := &recordingLogger{}
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Logger: log})

	out := apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})
	require.NotNil(t, out.Quiz)
	assert.True(t, out.Quiz.Discrepancy)
	assert.True(t, out.Quiz.Estimate.Passed)
	assert.False(t, out.Quiz.Record.Passed)
	assert.False(t, e.Snapshot().QuizCompleted(coursetest.ModuleB), "server score wins")
	assert.Positive(t, log.count("warn"))
}

func TestQuizSubmit_ServerFailureIsFeedbackOnly(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.FailNext(remote.OpSubmitQuiz, errors.New("timeout"))
	ledger := &memLedger{}
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Attempts: ledger})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonB1})
	out := apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})

	require.Len(t, out.SyncFailed, 1)
	assert.Equal(t, remote.OpSubmitQuiz, out.SyncFailed[0].Op)
	require.NotNil(t, out.Quiz)
	assert.Equal(t, quiz.SourceLocal, out.Quiz.Source)
	assert.True(t, out.Quiz.Record.Passed)
	assert.False(t, e.Snapshot().QuizCompleted(coursetest.ModuleB), "local estimate is not a score of record")
	assert.False(t, e.Snapshot().ModuleCompleted(coursetest.ModuleB))
	assert.Empty(t, out.ModulesCompleted)
	assert.Equal(t, 0, mock.PersistCount(coursetest.ModuleB))
	assert.False(t, mock.Completed(coursetest.ModuleB))
	require.Len(t, ledger.attempts, 1)
	assert.Equal(t, quiz.SourceLocal, ledger.attempts[0].Source)

	// Resubmitting once the server answers completes the module.
	out = apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})
	assert.Equal(t, quiz.SourceServer, out.Quiz.Source)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleB}, out.ModulesCompleted)
	assert.True(t, mock.Completed(coursetest.ModuleB))
}

func TestQuizSubmit_NoAnswerKey(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.HideAnswers = true
	e, out, err := Open(context.Background(), mock, coursetest.CourseID, Options{})
	require.NoError(t, err)
	defer e.Close()
	assert.Empty(t, out.SyncFailed)

	// Server unreachable and no client key: no score at all.
	mock.FailNext(remote.OpSubmitQuiz, errors.New("down"))
	out, err = e.Apply(context.Background(), QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})
	require.NoError(t, err)
	assert.Nil(t, out.Quiz)
	assert.False(t, e.Snapshot().QuizCompleted(coursetest.ModuleB))

	out, err = e.Apply(context.Background(), QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})
	require.NoError(t, err)
	require.NotNil(t, out.Quiz)
	assert.Nil(t, out.Quiz.Estimate)
	assert.False(t, out.Quiz.Discrepancy)
	assert.True(t, out.Quiz.Record.Passed)
	assert.True(t, e.Snapshot().QuizCompleted(coursetest.ModuleB))
}

func TestQuizSubmit_InvalidSubmissionAborts(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	_, err := e.Apply(context.Background(), QuizSubmitted{
		ModuleID:   coursetest.ModuleB,
		Submission: course.Submission{"nope": "a1"},
	})
	var verr *quiz.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, mock.CallCount(remote.OpSubmitQuiz))

	_, err = e.Apply(context.Background(), QuizSubmitted{
		ModuleID:   coursetest.ModuleB,
		Submission: course.Submission{coursetest.Question1: "zz"},
	})
	require.ErrorAs(t, err, &verr)
}

func TestQuizSubmit_RecordsAttempts(t *testing.T) {
	ledger := &memLedger{}
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Attempts: ledger})

	apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.HalfCorrect()})
	apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})

	require.Len(t, ledger.attempts, 2)
	assert.False(t, ledger.attempts[0].Record.Passed)
	assert.True(t, ledger.attempts[1].Record.Passed)
	assert.Equal(t, coursetest.QuizB, ledger.attempts[1].QuizID)
	assert.Equal(t, quiz.SourceServer, ledger.attempts[1].Source)
}

func TestQuizPassed(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonB1})
	out := apply(t, e, QuizPassed{ModuleID: coursetest.ModuleB, QuizID: coursetest.QuizB})
	assert.Equal(t, []course.ModuleID{coursetest.ModuleB}, out.ModulesCompleted)
	assert.Equal(t, 0, mock.CallCount(remote.OpSubmitQuiz))
	assert.Contains(t, out.Transitions, Transition{Kind: KindQuiz, ID: string(coursetest.QuizB), Trigger: TriggerQuizPassed})
}

type bogusEvent struct{}

func (bogusEvent) event() {}

func TestApply_CallerErrors(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	tests := []struct {
		name string
		ev   Event
		want error
	}{
		{"unknown lesson", LessonViewed{LessonID: "l-zz"}, ErrUnknownLesson},
		{"lesson in other module", LessonViewed{ModuleID: coursetest.ModuleB, LessonID: coursetest.LessonA1}, ErrUnknownLesson},
		{"unknown module for lesson", LessonViewed{ModuleID: "m-zz", LessonID: coursetest.LessonA1}, ErrUnknownModule},
		{"submit to unknown module", QuizSubmitted{ModuleID: "m-zz"}, ErrUnknownModule},
		{"submit to module without quiz", QuizSubmitted{ModuleID: coursetest.ModuleA}, ErrNoQuiz},
		{"submit wrong quiz", QuizSubmitted{ModuleID: coursetest.ModuleB, QuizID: "q-zz"}, ErrQuizMismatch},
		{"pass unknown module", QuizPassed{ModuleID: "m-zz"}, ErrUnknownModule},
		{"pass module without quiz", QuizPassed{ModuleID: coursetest.ModuleA}, ErrNoQuiz},
		{"pass wrong quiz", QuizPassed{ModuleID: coursetest.ModuleB, QuizID: "q-zz"}, ErrQuizMismatch},
		{"unknown event", bogusEvent{}, ErrUnknownEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Apply(context.Background(), tt.ev)
			require.ErrorIs(t, err, tt.want)
		})
	}

	assert.True(t, e.Snapshot().Equal(completion.NewStore().Snapshot()), "errors leave state untouched")
}

func TestLazyQuizResolution(t *testing.T) {
	c := coursetest.TwoModule()
	c.Modules[1].Quiz, c.Modules[1].QuizKnown = nil, false

	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.FailNext(remote.OpFetchQuiz, errors.New("refused"))
	e, err := New(mock, c, Options{})
	require.NoError(t, err)
	defer e.Close()

	out, err := e.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, out.SyncFailed, 1)
	assert.Equal(t, remote.OpFetchQuiz, out.SyncFailed[0].Op)
	assert.Equal(t, coursetest.ModuleB, out.SyncFailed[0].ModuleID)

	// The cascade needs the quiz once the lesson is viewed; the fetch fails
	// again, so the module must not complete.
	mock.FailNext(remote.OpFetchQuiz, errors.New("refused"))
	out = apply(t, e, LessonViewed{LessonID: coursetest.LessonB1})
	require.Len(t, out.SyncFailed, 1)
	assert.False(t, e.Snapshot().ModuleCompleted(coursetest.ModuleB))

	out = apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})
	assert.Empty(t, out.SyncFailed)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleB}, out.ModulesCompleted)
	assert.Equal(t, 3, mock.CallCount(remote.OpFetchQuiz))

	// Resolved once, cached afterwards.
	apply(t, e, QuizPassed{ModuleID: coursetest.ModuleB})
	assert.Equal(t, 3, mock.CallCount(remote.OpFetchQuiz))
	assert.NotNil(t, e.Course().Module(coursetest.ModuleB).Quiz)
}

func TestOpen_SeedsFromServer(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.SetCompleted(coursetest.ModuleB, true)

	e, out, err := Open(context.Background(), mock, coursetest.CourseID, Options{CheckInvariants: true})
	require.NoError(t, err)
	defer e.Close()
	assert.Empty(t, out.Violations)
	assert.Empty(t, out.ModulesCompleted, "seeded modules are not new completions")

	snap := e.Snapshot()
	assert.True(t, snap.ModuleCompleted(coursetest.ModuleB))
	assert.True(t, snap.LessonCompleted(coursetest.LessonB1))
	assert.True(t, snap.QuizCompleted(coursetest.ModuleB))
	assert.False(t, snap.ModuleCompleted(coursetest.ModuleA))
	assert.Equal(t, 2, mock.CallCount(remote.OpFetchQuiz))
	assert.Equal(t, 0, mock.CallCount(remote.OpPersistModule))

	p := e.Progress()
	assert.Equal(t, 1, p.ModulesCompleted)
	assert.True(t, p.Modules[1].HasQuiz)
}

func TestOpen_SeededCourseComplete(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.SetCompleted(coursetest.ModuleA, true)
	mock.SetCompleted(coursetest.ModuleB, true)

	e, out, err := Open(context.Background(), mock, coursetest.CourseID, Options{})
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, out.CourseCompleted)
	assert.True(t, e.Snapshot().CourseCompleted(coursetest.CourseID))
}

func TestOpen_StructureFetchFails(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.FailNext(remote.OpFetchModules, &remote.Error{Kind: remote.KindUnauthorized, Op: remote.OpFetchModules, Status: 401, Err: errors.New("no")})

	_, _, err := Open(context.Background(), mock, coursetest.CourseID, Options{})
	e, ok := remote.AsError(err)
	require.True(t, ok)
	assert.Equal(t, remote.KindUnauthorized, e.Kind)
}

func TestLoad_CompletionFetchFails(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.FailNext(remote.OpFetchModules, errors.New("refused"))
	e, err := New(mock, coursetest.TwoModule(), Options{})
	require.NoError(t, err)
	defer e.Close()

	out, err := e.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, out.SyncFailed, 1)
	assert.Equal(t, remote.OpFetchModules, out.SyncFailed[0].Op)
}

func TestLoad_ReplaysLedgers(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	ledger := &memLedger{
		lessons: []course.LessonID{coursetest.LessonA1, coursetest.LessonA2, "l-gone"},
		pending: []course.ModuleID{coursetest.ModuleB, "m-gone"},
	}
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Lessons: ledger, Pending: ledger})

	snap := e.Snapshot()
	assert.True(t, snap.ModuleCompleted(coursetest.ModuleA), "replayed lessons cascade")
	assert.True(t, mock.Completed(coursetest.ModuleA))
	assert.True(t, snap.ModuleCompleted(coursetest.ModuleB), "pending completion restored")
	assert.True(t, snap.CourseCompleted(coursetest.CourseID))
	assert.Equal(t, []course.ModuleID{coursetest.ModuleB}, e.Pending())

	out, err := e.RetrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleB}, out.Synced)
	assert.True(t, mock.Completed(coursetest.ModuleB))
	assert.NotContains(t, ledger.pending, coursetest.ModuleB)
}

func TestLoad_ReplaysQuizPasses(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	ledger := &memLedger{}
	opts := Options{Lessons: ledger, Attempts: ledger, Quizzes: ledger}

	first := newEngine(t, mock, coursetest.TwoModule(), opts)
	out := apply(t, first, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()})
	require.True(t, out.Quiz.Record.Passed)
	assert.Empty(t, out.ModulesCompleted, "lesson still unviewed")
	first.Close()

	second := newEngine(t, mock, coursetest.TwoModule(), opts)
	assert.True(t, second.Snapshot().QuizCompleted(coursetest.ModuleB))

	out = apply(t, second, LessonViewed{LessonID: coursetest.LessonB1})
	assert.Equal(t, []course.ModuleID{coursetest.ModuleB}, out.ModulesCompleted)
	assert.True(t, mock.Completed(coursetest.ModuleB))
}

func TestLoad_IgnoresUntrustedQuizPasses(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	ledger := &memLedger{attempts: []Attempt{
		{ModuleID: coursetest.ModuleB, QuizID: coursetest.QuizB, Reconciliation: quiz.Reconciliation{Record: quiz.Result{Passed: true}, Source: quiz.SourceLocal}},
		{ModuleID: coursetest.ModuleA, QuizID: "q-none", Reconciliation: quiz.Reconciliation{Record: quiz.Result{Passed: true}, Source: quiz.SourceServer}},
		{ModuleID: "m-gone", QuizID: "q-gone", Reconciliation: quiz.Reconciliation{Record: quiz.Result{Passed: true}, Source: quiz.SourceServer}},
	}}
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Quizzes: ledger})

	snap := e.Snapshot()
	assert.False(t, snap.QuizCompleted(coursetest.ModuleB), "local scores are not replayed")
	assert.False(t, snap.QuizCompleted(coursetest.ModuleA), "module A has no quiz")
}

func TestSeed_ModuleWithoutQuizGetsNoQuizFlag(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.SetCompleted(coursetest.ModuleA, true)
	mock.SetCompleted(coursetest.ModuleB, true)

	e, _, err := Open(context.Background(), mock, coursetest.CourseID, Options{CheckInvariants: true})
	require.NoError(t, err)
	defer e.Close()

	snap := e.Snapshot()
	assert.True(t, snap.ModuleCompleted(coursetest.ModuleA))
	assert.False(t, snap.QuizCompleted(coursetest.ModuleA))
	assert.True(t, snap.QuizCompleted(coursetest.ModuleB))
}

func TestLoad_PendingAlreadyOnServer(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.SetCompleted(coursetest.ModuleA, true)
	ledger := &memLedger{pending: []course.ModuleID{coursetest.ModuleA}}
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Pending: ledger})

	assert.Empty(t, e.Pending())
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, ledger.removed)
}

func TestLessonViewed_RecordsLedger(t *testing.T) {
	ledger := &memLedger{}
	e := newEngine(t, remote.NewMockAdapter(coursetest.TwoModule()), coursetest.TwoModule(), Options{Lessons: ledger})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})
	apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})
	assert.Equal(t, []course.LessonID{coursetest.LessonA1}, ledger.lessons)
}

func TestReload(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonB1})
	apply(t, e, QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.HalfCorrect()})
	apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})
	require.True(t, e.Snapshot().LessonCompleted(coursetest.LessonA1))

	// Server knows module B was completed elsewhere.
	mock.SetCompleted(coursetest.ModuleB, true)

	_, err := e.Reload(context.Background())
	require.NoError(t, err)
	snap := e.Snapshot()
	assert.False(t, snap.LessonCompleted(coursetest.LessonA1), "session-only lesson views are cleared")
	assert.True(t, snap.ModuleCompleted(coursetest.ModuleB))
	assert.True(t, snap.QuizCompleted(coursetest.ModuleB))
}

func TestReload_ReplaysLessonLedger(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	mock.FailNext(remote.OpPersistModule, errors.New("refused"))
	ledger := &memLedger{}
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Lessons: ledger})

	apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})
	apply(t, e, LessonViewed{LessonID: coursetest.LessonA2})
	require.Equal(t, []course.ModuleID{coursetest.ModuleA}, e.Pending())

	out, err := e.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA}, out.ModulesCompleted)
	assert.Empty(t, e.Pending())
	assert.True(t, mock.Completed(coursetest.ModuleA))
}

func TestReload_EventsWaitForSeeding(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})
	mock.SetCompleted(coursetest.ModuleA, true)

	var (
		once          sync.Once
		applied       = make(chan Outcome, 1)
		finishedEarly bool
	)
	mock.Before = func(_ context.Context, op remote.Op, _ course.ModuleID) {
		if op != remote.OpFetchModules {
			return
		}
		once.Do(func() {
			go func() {
				out, _ := e.Apply(context.Background(), LessonViewed{LessonID: coursetest.LessonA1})
				applied <- out
			}()
			select {
			case <-applied:
				finishedEarly = true
			case <-time.After(50 * time.Millisecond):
			}
		})
	}

	_, err := e.Reload(context.Background())
	require.NoError(t, err)
	require.False(t, finishedEarly, "event ran while the store was being reseeded")

	out := <-applied
	assert.Empty(t, out.ModulesCompleted, "module A was already seeded from the server")
	assert.Equal(t, 0, mock.PersistCount(coursetest.ModuleA))
}

// orderedAdapter forces FetchModuleCompletion and FetchModuleQuiz to
// complete in a fixed order.
type orderedAdapter struct {
	remote.Adapter
	quizFirst bool

	quizDone       chan struct{}
	completionDone chan struct{}
}

func newOrderedAdapter(a remote.Adapter, quizFirst bool) *orderedAdapter {
	return &orderedAdapter{
		Adapter:        a,
		quizFirst:      quizFirst,
		quizDone:       make(chan struct{}),
		completionDone: make(chan struct{}),
	}
}

func (o *orderedAdapter) FetchModuleCompletion(ctx context.Context, id course.CourseID) (map[course.ModuleID]bool, error) {
	if o.quizFirst {
		<-o.quizDone
	}
	defer close(o.completionDone)
	return o.Adapter.FetchModuleCompletion(ctx, id)
}

func (o *orderedAdapter) FetchModuleQuiz(ctx context.Context, c course.CourseID, m course.ModuleID) (*course.Quiz, error) {
	if !o.quizFirst {
		<-o.completionDone
	}
	defer close(o.quizDone)
	return o.Adapter.FetchModuleQuiz(ctx, c, m)
}

func TestFetchOrderIndependence(t *testing.T) {
	run := func(quizFirst bool) completion.Snapshot {
		c := coursetest.TwoModule()
		c.Modules[1].Quiz, c.Modules[1].QuizKnown = nil, false

		mock := remote.NewMockAdapter(coursetest.TwoModule())
		mock.SetCompleted(coursetest.ModuleB, true)
		ledger := &memLedger{lessons: []course.LessonID{coursetest.LessonA1}}

		e, err := New(newOrderedAdapter(mock, quizFirst), c, Options{Lessons: ledger, CheckInvariants: true})
		require.NoError(t, err)
		defer e.Close()

		out, err := e.Load(context.Background())
		require.NoError(t, err)
		require.Empty(t, out.SyncFailed)
		require.Empty(t, out.Violations)
		return e.Snapshot()
	}

	a := run(true)
	b := run(false)
	assert.True(t, a.Equal(b), "final store must not depend on fetch order")
	assert.True(t, a.ModuleCompleted(coursetest.ModuleB))
	assert.True(t, a.LessonCompleted(coursetest.LessonA1))
}

func TestConcurrentEvents(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})

	events := []Event{
		LessonViewed{LessonID: coursetest.LessonA1},
		LessonViewed{LessonID: coursetest.LessonA2},
		LessonViewed{LessonID: coursetest.LessonB1},
		QuizSubmitted{ModuleID: coursetest.ModuleB, Submission: coursetest.AllCorrect()},
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []Outcome
	)
	for range 5 {
		for _, ev := range events {
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := e.Apply(context.Background(), ev)
				assert.NoError(t, err)
				mu.Lock()
				outcomes = append(outcomes, out)
				mu.Unlock()
			}()
		}
	}
	wg.Wait()

	courseDone := 0
	var completed []course.ModuleID
	for _, o := range outcomes {
		if o.CourseCompleted {
			courseDone++
		}
		completed = append(completed, o.ModulesCompleted...)
		assert.Empty(t, o.Violations)
	}
	sort.Slice(completed, func(i, j int) bool { return completed[i] < completed[j] })

	assert.Equal(t, 1, courseDone, "course completion is reported exactly once")
	assert.Equal(t, []course.ModuleID{coursetest.ModuleA, coursetest.ModuleB}, completed)
	assert.Equal(t, 1, mock.PersistCount(coursetest.ModuleA))
	assert.Equal(t, 1, mock.PersistCount(coursetest.ModuleB))
	assert.Empty(t, e.Violations())
}

func TestClose_CancelsInFlight(t *testing.T) {
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	started := make(chan struct{})
	mock.Before = func(ctx context.Context, op remote.Op, _ course.ModuleID) {
		if op == remote.OpPersistModule {
			close(started)
			<-ctx.Done()
		}
	}
	e := newEngine(t, mock, coursetest.TwoModule(), Options{})
	apply(t, e, LessonViewed{LessonID: coursetest.LessonA1})

	done := make(chan Outcome)
	go func() {
		out, _ := e.Apply(context.Background(), LessonViewed{LessonID: coursetest.LessonA2})
		done <- out
	}()

	<-started
	e.Close()
	out := <-done

	require.Len(t, out.SyncFailed, 1)
	assert.ErrorIs(t, out.SyncFailed[0].Err, context.Canceled)
	assert.True(t, e.Snapshot().ModuleCompleted(coursetest.ModuleA))

	_, err := e.Apply(context.Background(), LessonViewed{LessonID: coursetest.LessonB1})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.RetrySync(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.Reload(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInvariantViolationsAreLoggedNotCorrected(t *testing.T) {
	log := &recordingLogger{}
	mock := remote.NewMockAdapter(coursetest.TwoModule())
	e := newEngine(t, mock, coursetest.TwoModule(), Options{Logger: log})

	// Simulate a caller bug that bypassed the engine.
	e.store.SetCourse(coursetest.CourseID, true)

	out, err := e.Apply(context.Background(), LessonViewed{LessonID: coursetest.LessonA1})
	require.NoError(t, err)
	require.Len(t, out.Violations, 2)
	assert.Equal(t, RuleCourseBeforeModules, out.Violations[0].Rule)
	assert.Equal(t, 2, log.count("error"))
	assert.True(t, e.Snapshot().CourseCompleted(coursetest.CourseID), "violations are never corrected")
}
