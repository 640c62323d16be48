// Package progression applies learner events to the completion store and
// cascades completion from lessons to modules to the course.
//
// Local state is updated optimistically: a remote failure never rolls a
// flag back. Failures are reported in Outcome.SyncFailed and modules whose
// completion could not be persisted stay pending until RetrySync succeeds.
// Flags only flip from false to true; Reload is the one operation that
// clears them, by re-seeding from the server.
package progression

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/coursetrack/internal/completion"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/quiz"
	"github.com/abhisek/coursetrack/internal/remote"
)

// Options configures an Engine. The zero value is usable.
type Options struct {
	Evaluator quiz.Evaluator
	Logger    Logger

	Lessons  LessonLedger
	Pending  PendingLedger
	Attempts AttemptRecorder
	Quizzes  QuizLedger

	// CheckInvariants runs CheckInvariants after every call and reports
	// violations in the Outcome.
	CheckInvariants bool

	// FetchConcurrency bounds concurrent quiz fetches during Load.
	// Default: 4.
	FetchConcurrency int
}

// Engine is the progression state machine for one course. It is safe for
// concurrent use; events for the same module are processed one at a time.
type Engine struct {
	adapter remote.Adapter
	course  *course.Course
	opts    Options
	log     Logger
	store   *completion.Store

	// lifetime bounds every remote call; Close cancels it.
	lifetime context.Context
	cancel   context.CancelFunc

	// reload is held for writing by Reload and for reading by every other
	// state-changing call.
	reload sync.RWMutex

	modules  moduleLocks
	courseMu sync.Mutex

	mu      sync.Mutex
	quizzes map[course.ModuleID]*course.Quiz
	known   map[course.ModuleID]bool
	pending map[course.ModuleID]bool
	closed  bool
}

// New creates an Engine for c without any remote calls. Modules with
// QuizKnown set keep their quiz; the rest are resolved lazily.
func New(adapter remote.Adapter, c *course.Course, opts Options) (*Engine, error) {
	if err := course.Validate(c); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}

	c = c.DeepCopy()
	e := &Engine{
		adapter: adapter,
		course:  c,
		opts:    opts,
		log:     opts.Logger,
		store:   completion.NewStore(),
		quizzes: make(map[course.ModuleID]*course.Quiz),
		known:   make(map[course.ModuleID]bool),
		pending: make(map[course.ModuleID]bool),
	}
	for i := range c.Modules {
		m := &c.Modules[i]
		if m.QuizKnown {
			e.quizzes[m.ID] = m.Quiz
			e.known[m.ID] = true
		}
		m.Quiz, m.QuizKnown = nil, false
	}
	e.lifetime, e.cancel = context.WithCancel(context.Background())
	return e, nil
}

// Open fetches the course structure and completion flags for courseID,
// creates an Engine and loads it. A failed structure fetch is returned as
// a *remote.Error since there is nothing to progress through.
func Open(ctx context.Context, adapter remote.Adapter, courseID course.CourseID, opts Options) (*Engine, Outcome, error) {
	c, done, err := adapter.FetchCourse(ctx, courseID)
	if err != nil {
		return nil, Outcome{}, err
	}
	e, err := New(adapter, c, opts)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("course %s from server: %w", courseID, err)
	}
	out, err := e.load(ctx, done)
	if err != nil {
		return nil, Outcome{}, err
	}
	return e, out, nil
}

// Load seeds the store from the server, resolving quizzes concurrently,
// then replays the local ledgers and runs the cascade for every module.
func (e *Engine) Load(ctx context.Context) (Outcome, error) {
	return e.load(ctx, nil)
}

// Reload clears the completion store and loads again from the server.
// Pending completions are forgotten unless the pending ledger keeps them.
// Events wait until the store is seeded again.
func (e *Engine) Reload(ctx context.Context) (Outcome, error) {
	if err := e.checkOpen(); err != nil {
		return Outcome{}, err
	}
	e.reload.Lock()
	defer e.reload.Unlock()

	e.store.Reset()
	e.mu.Lock()
	e.pending = make(map[course.ModuleID]bool)
	e.mu.Unlock()

	return e.loadLocked(ctx, nil)
}

func (e *Engine) load(ctx context.Context, done map[course.ModuleID]bool) (Outcome, error) {
	if err := e.checkOpen(); err != nil {
		return Outcome{}, err
	}
	e.reload.RLock()
	defer e.reload.RUnlock()
	return e.loadLocked(ctx, done)
}

// loadLocked fetches what is missing, seeds, replays and cascades. done is
// the server completion map when the caller already has it. Caller holds
// the reload lock.
func (e *Engine) loadLocked(ctx context.Context, done map[course.ModuleID]bool) (Outcome, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()

	var (
		mu  sync.Mutex
		out Outcome
	)
	collect := func(o Outcome) {
		mu.Lock()
		out.merge(o)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(e.opts.FetchConcurrency + 1)

	if done == nil {
		g.Go(func() error {
			fetched, err := e.adapter.FetchModuleCompletion(ctx, e.course.ID)
			if err != nil {
				var o Outcome
				o.fail(remote.OpFetchModules, "", asRemote(remote.OpFetchModules, err))
				e.log.Warnf("fetch completion for %s: %v", e.course.ID, err)
				collect(o)
				return nil
			}
			mu.Lock()
			done = fetched
			mu.Unlock()
			return nil
		})
	}

	for _, m := range e.course.Modules {
		if e.quizKnown(m.ID) {
			continue
		}
		g.Go(func() error {
			unlock := e.modules.lock(m.ID)
			defer unlock()
			var o Outcome
			e.resolveQuiz(ctx, m.ID, &o)
			collect(o)
			return nil
		})
	}
	_ = g.Wait()

	// Seed once quiz presence is known, so modules without a quiz never
	// get a quiz flag.
	out.merge(e.seed(done))
	out.merge(e.replayPending(ctx))
	out.merge(e.replayLessons(ctx))
	out.merge(e.replayQuizzes(ctx))

	for _, m := range e.course.Modules {
		unlock := e.modules.lock(m.ID)
		var o Outcome
		e.cascade(ctx, m.ID, TriggerCascade, &o)
		unlock()
		out.merge(o)
	}
	// Seeded modules skip the module cascade; the course may still be done.
	e.cascadeCourse(&out)

	e.checkInvariants(&out)
	return out, nil
}

// seed applies server completion flags. A module the server reports
// completed implies its lessons and quiz are completed.
func (e *Engine) seed(done map[course.ModuleID]bool) Outcome {
	var out Outcome
	for _, m := range e.course.Modules {
		if !done[m.ID] {
			continue
		}
		unlock := e.modules.lock(m.ID)
		e.markModuleDone(m, TriggerServer, &out)
		unlock()
	}
	for id := range done {
		if e.course.Module(id) == nil {
			e.log.Debugf("server reported unknown module %s", id)
		}
	}
	return out
}

// markModuleDone sets the module and everything it implies. Caller holds
// the module lock.
func (e *Engine) markModuleDone(m course.Module, t Trigger, out *Outcome) {
	for _, l := range m.Lessons {
		if !e.store.Lesson(l.ID) {
			e.store.SetLesson(l.ID, true)
			out.transition(KindLesson, string(l.ID), t)
		}
	}
	// A module without a quiz has nothing to pass. An unresolved quiz is
	// implied passed by the completed module.
	q := e.knownQuiz(m.ID)
	if (q != nil || !e.quizKnown(m.ID)) && !e.store.Quiz(m.ID) {
		e.store.SetQuiz(m.ID, true)
		if q != nil {
			out.transition(KindQuiz, string(q.ID), t)
		}
	}
	if !e.store.Module(m.ID) {
		e.store.SetModule(m.ID, true)
		out.transition(KindModule, string(m.ID), t)
	}
}

func (e *Engine) replayPending(ctx context.Context) Outcome {
	var out Outcome
	if e.opts.Pending == nil {
		return out
	}
	ids, err := e.opts.Pending.Pending(ctx, e.course.ID)
	if err != nil {
		e.log.Warnf("read pending completions: %v", err)
		return out
	}
	for _, id := range ids {
		m := e.course.Module(id)
		if m == nil {
			e.log.Debugf("dropping pending completion of unknown module %s", id)
			continue
		}
		unlock := e.modules.lock(id)
		if e.store.Module(id) {
			// The server already has it.
			if err := e.opts.Pending.RemovePending(ctx, e.course.ID, id); err != nil {
				e.log.Warnf("clear pending completion %s: %v", id, err)
			}
		} else {
			e.markModuleDone(*m, TriggerLedger, &out)
			e.setPending(id, true)
		}
		unlock()
	}
	return out
}

func (e *Engine) replayLessons(ctx context.Context) Outcome {
	var out Outcome
	if e.opts.Lessons == nil {
		return out
	}
	ids, err := e.opts.Lessons.ViewedLessons(ctx, e.course.ID)
	if err != nil {
		e.log.Warnf("read lesson views: %v", err)
		return out
	}
	for _, id := range ids {
		m := e.moduleOfLesson(id)
		if m == nil {
			e.log.Debugf("ignoring view of unknown lesson %s", id)
			continue
		}
		unlock := e.modules.lock(m.ID)
		if !e.store.Lesson(id) {
			e.store.SetLesson(id, true)
			out.transition(KindLesson, string(id), TriggerLedger)
		}
		unlock()
	}
	return out
}

func (e *Engine) replayQuizzes(ctx context.Context) Outcome {
	var out Outcome
	if e.opts.Quizzes == nil {
		return out
	}
	passed, err := e.opts.Quizzes.PassedQuizzes(ctx, e.course.ID)
	if err != nil {
		e.log.Warnf("read quiz passes: %v", err)
		return out
	}
	for id, quizID := range passed {
		if e.course.Module(id) == nil {
			e.log.Debugf("ignoring pass of quiz %s in unknown module %s", quizID, id)
			continue
		}
		unlock := e.modules.lock(id)
		q := e.knownQuiz(id)
		switch {
		case e.quizKnown(id) && q == nil:
			e.log.Debugf("ignoring pass of quiz %s: module %s has no quiz", quizID, id)
		case q != nil && q.ID != quizID:
			e.log.Debugf("ignoring pass of quiz %s: module %s now has quiz %s", quizID, id, q.ID)
		case !e.store.Quiz(id):
			e.store.SetQuiz(id, true)
			out.transition(KindQuiz, string(quizID), TriggerLedger)
		}
		unlock()
	}
	return out
}

// Apply processes one event. Caller mistakes (unknown IDs, an invalid
// submission) are returned as errors; remote failures are reported in the
// Outcome and never undo local state.
func (e *Engine) Apply(ctx context.Context, ev Event) (Outcome, error) {
	if err := e.checkOpen(); err != nil {
		return Outcome{}, err
	}
	e.reload.RLock()
	defer e.reload.RUnlock()

	ctx, cancel := e.callContext(ctx)
	defer cancel()

	var (
		out Outcome
		err error
	)
	switch ev := ev.(type) {
	case LessonViewed:
		err = e.lessonViewed(ctx, ev, &out)
	case QuizSubmitted:
		err = e.quizSubmitted(ctx, ev, &out)
	case QuizPassed:
		err = e.quizPassed(ctx, ev, &out)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	if err != nil {
		return Outcome{}, err
	}

	e.checkInvariants(&out)
	return out, nil
}

func (e *Engine) lessonViewed(ctx context.Context, ev LessonViewed, out *Outcome) error {
	m := e.moduleOfLesson(ev.LessonID)
	if m == nil || (ev.ModuleID != "" && ev.ModuleID != m.ID) {
		if ev.ModuleID != "" && e.course.Module(ev.ModuleID) == nil {
			return fmt.Errorf("%w: %s", ErrUnknownModule, ev.ModuleID)
		}
		return fmt.Errorf("%w: %s", ErrUnknownLesson, ev.LessonID)
	}

	unlock := e.modules.lock(m.ID)
	defer unlock()

	if !e.store.Lesson(ev.LessonID) {
		e.store.SetLesson(ev.LessonID, true)
		out.transition(KindLesson, string(ev.LessonID), TriggerLessonViewed)
		if e.opts.Lessons != nil {
			if err := e.opts.Lessons.RecordLessonView(ctx, e.course.ID, ev.LessonID); err != nil {
				e.log.Warnf("record lesson view %s: %v", ev.LessonID, err)
			}
		}
	}

	e.cascade(ctx, m.ID, TriggerCascade, out)
	return nil
}

func (e *Engine) quizSubmitted(ctx context.Context, ev QuizSubmitted, out *Outcome) error {
	if e.course.Module(ev.ModuleID) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownModule, ev.ModuleID)
	}

	unlock := e.modules.lock(ev.ModuleID)
	defer unlock()

	q, ok := e.resolveQuiz(ctx, ev.ModuleID, out)
	if !ok {
		return nil
	}
	if q == nil {
		return fmt.Errorf("%w: %s", ErrNoQuiz, ev.ModuleID)
	}
	if ev.QuizID != "" && ev.QuizID != q.ID {
		return fmt.Errorf("%w: quiz %s, module %s", ErrQuizMismatch, ev.QuizID, ev.ModuleID)
	}

	var estimate *quiz.Result
	res, err := e.opts.Evaluator.Evaluate(q, ev.Submission)
	switch {
	case err == nil:
		estimate = &res
	case errors.Is(err, quiz.ErrNoAnswerKey):
	default:
		return err
	}

	rec, ok := e.submit(ctx, ev.ModuleID, q.ID, ev.Submission, estimate, out)
	if !ok {
		return nil
	}
	out.Quiz = &rec
	e.recordAttempt(ctx, ev.ModuleID, q.ID, rec)

	// A local estimate is feedback only; completion waits for a server score.
	if rec.Source != quiz.SourceServer {
		return nil
	}
	if rec.Record.Passed && !e.store.Quiz(ev.ModuleID) {
		e.store.SetQuiz(ev.ModuleID, true)
		out.transition(KindQuiz, string(q.ID), TriggerQuizSubmitted)
	}

	e.cascade(ctx, ev.ModuleID, TriggerCascade, out)
	return nil
}

// submit sends the submission and reconciles the server score with the
// local estimate. When the server fails, the estimate comes back as a
// provisional SourceLocal score; ok is false when there is none.
func (e *Engine) submit(ctx context.Context, moduleID course.ModuleID, quizID course.QuizID, sub course.Submission, estimate *quiz.Result, out *Outcome) (quiz.Reconciliation, bool) {
	score, err := e.adapter.SubmitQuiz(ctx, e.course.ID, moduleID, quizID, sub)
	var server quiz.Result
	if err == nil {
		server, err = e.opts.Evaluator.Score(score.CorrectCount, score.TotalQuestions)
		if err != nil {
			err = &remote.Error{Kind: remote.KindServerError, Op: remote.OpSubmitQuiz, Err: err}
		}
	}
	if err != nil {
		rerr := asRemote(remote.OpSubmitQuiz, err)
		out.fail(remote.OpSubmitQuiz, moduleID, rerr)
		e.log.Warnf("submit quiz %s: %v", quizID, rerr)
		rec, ok := quiz.Provisional(estimate)
		if ok {
			e.log.Infof("using local score %d/%d for quiz %s", rec.Record.CorrectCount, rec.Record.TotalQuestions, quizID)
		}
		return rec, ok
	}

	rec := quiz.Reconcile(estimate, server)
	if rec.Discrepancy {
		e.log.Warnf("quiz %s: local score %d/%d disagrees with server %d/%d",
			quizID, estimate.CorrectCount, estimate.TotalQuestions, server.CorrectCount, server.TotalQuestions)
	}
	return rec, true
}

func (e *Engine) recordAttempt(ctx context.Context, moduleID course.ModuleID, quizID course.QuizID, rec quiz.Reconciliation) {
	if e.opts.Attempts == nil {
		return
	}
	a := Attempt{CourseID: e.course.ID, ModuleID: moduleID, QuizID: quizID, Reconciliation: rec}
	if err := e.opts.Attempts.RecordQuizAttempt(context.WithoutCancel(ctx), a); err != nil {
		e.log.Warnf("record quiz attempt %s: %v", quizID, err)
	}
}

func (e *Engine) quizPassed(ctx context.Context, ev QuizPassed, out *Outcome) error {
	if e.course.Module(ev.ModuleID) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownModule, ev.ModuleID)
	}

	unlock := e.modules.lock(ev.ModuleID)
	defer unlock()

	q, ok := e.resolveQuiz(ctx, ev.ModuleID, out)
	if !ok {
		return nil
	}
	if q == nil {
		return fmt.Errorf("%w: %s", ErrNoQuiz, ev.ModuleID)
	}
	if ev.QuizID != "" && ev.QuizID != q.ID {
		return fmt.Errorf("%w: quiz %s, module %s", ErrQuizMismatch, ev.QuizID, ev.ModuleID)
	}

	if !e.store.Quiz(ev.ModuleID) {
		e.store.SetQuiz(ev.ModuleID, true)
		out.transition(KindQuiz, string(q.ID), TriggerQuizPassed)
	}
	e.cascade(ctx, ev.ModuleID, TriggerCascade, out)
	return nil
}

// RetrySync re-persists every pending module completion. Persist is
// idempotent, so retrying a module the server already has is harmless.
func (e *Engine) RetrySync(ctx context.Context) (Outcome, error) {
	if err := e.checkOpen(); err != nil {
		return Outcome{}, err
	}
	e.reload.RLock()
	defer e.reload.RUnlock()

	ctx, cancel := e.callContext(ctx)
	defer cancel()

	var out Outcome
	for _, id := range e.Pending() {
		unlock := e.modules.lock(id)
		e.persist(ctx, id, &out)
		unlock()
	}
	e.checkInvariants(&out)
	return out, nil
}

// Pending returns the modules whose completion has not reached the server,
// sorted by ID.
func (e *Engine) Pending() []course.ModuleID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]course.ModuleID, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot returns an immutable copy of the completion state.
func (e *Engine) Snapshot() completion.Snapshot {
	return e.store.Snapshot()
}

// Course returns a copy of the course with every resolved quiz filled in.
func (e *Engine) Course() *course.Course {
	c := e.course.DeepCopy()
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range c.Modules {
		m := &c.Modules[i]
		if e.known[m.ID] {
			m.Quiz = e.quizzes[m.ID].DeepCopy() // nil for modules without a quiz
			m.QuizKnown = true
		}
	}
	return c
}

// Progress summarizes completion for display.
func (e *Engine) Progress() completion.CourseProgress {
	return e.Snapshot().Progress(e.Course())
}

// Violations runs the invariant checks against the current state.
func (e *Engine) Violations() []InvariantViolation {
	return CheckInvariants(e.Course(), e.Snapshot())
}

// Close cancels in-flight remote calls. Later calls return ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()
}

func (e *Engine) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

// callContext derives a context that is also cancelled by Close.
func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (e *Engine) checkInvariants(out *Outcome) {
	if !e.opts.CheckInvariants {
		return
	}
	for _, v := range e.Violations() {
		e.log.Errorf("invariant violated: %s", v)
		out.Violations = append(out.Violations, v)
	}
}

func (e *Engine) moduleOfLesson(id course.LessonID) *course.Module {
	for i := range e.course.Modules {
		if e.course.Modules[i].HasLesson(id) {
			return &e.course.Modules[i]
		}
	}
	return nil
}

func (e *Engine) quizKnown(id course.ModuleID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.known[id]
}

func (e *Engine) knownQuiz(id course.ModuleID) *course.Quiz {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quizzes[id]
}

func (e *Engine) setPending(id course.ModuleID, v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v {
		e.pending[id] = true
	} else {
		delete(e.pending, id)
	}
}

// asRemote guarantees a *remote.Error for any adapter failure.
func asRemote(op remote.Op, err error) *remote.Error {
	if re, ok := remote.AsError(err); ok {
		return re
	}
	return &remote.Error{Kind: remote.KindNetwork, Op: op, Err: err}
}
