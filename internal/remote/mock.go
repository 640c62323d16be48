package remote

import (
	"context"
	"sync"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/quiz"
)

// Call records one MockAdapter invocation.
type Call struct {
	Op       Op
	ModuleID course.ModuleID
}

// MockAdapter is a deterministic in-memory Adapter for testing. It behaves
// like a backend serving one course: it scores submissions against the
// course's answer key and remembers persisted completions.
type MockAdapter struct {
	mu        sync.Mutex
	course    *course.Course
	completed map[course.ModuleID]bool
	failures  map[Op][]error
	scores    []Score
	persisted map[course.ModuleID]int

	// HideAnswers strips answer flags from fetched quizzes.
	HideAnswers bool

	// Before, when set, runs before each call is served. Tests use it to
	// block calls and force a completion order.
	Before func(ctx context.Context, op Op, moduleID course.ModuleID)

	Calls []Call
}

var _ Adapter = (*MockAdapter)(nil)

// NewMockAdapter creates a MockAdapter serving a copy of c.
func NewMockAdapter(c *course.Course) *MockAdapter {
	return &MockAdapter{
		course:    c.DeepCopy(),
		completed: make(map[course.ModuleID]bool),
		failures:  make(map[Op][]error),
		persisted: make(map[course.ModuleID]int),
	}
}

// SetCompleted sets the server-side completion flag of a module.
func (m *MockAdapter) SetCompleted(id course.ModuleID, done bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[id] = done
}

// Completed returns the server-side completion flag of a module.
func (m *MockAdapter) Completed(id course.ModuleID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed[id]
}

// FailNext queues err as the result of the next call to op. Errors that are
// not a *Error are wrapped as network failures.
func (m *MockAdapter) FailNext(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], wrapError(op, KindNetwork, err))
}

// AddScore queues a canned server score for the next SubmitQuiz, overriding
// server-side scoring.
func (m *MockAdapter) AddScore(s Score) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, s)
}

// PersistCount returns how many times the module completion was persisted.
func (m *MockAdapter) PersistCount(id course.ModuleID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persisted[id]
}

// CallCount returns the number of calls made for op.
func (m *MockAdapter) CallCount(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (m *MockAdapter) FetchCourse(ctx context.Context, courseID course.CourseID) (*course.Course, map[course.ModuleID]bool, error) {
	if err := m.begin(ctx, OpFetchModules, ""); err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.course.DeepCopy()
	for i := range c.Modules {
		c.Modules[i].Quiz = nil
		c.Modules[i].QuizKnown = false
	}
	return c, m.completionLocked(), nil
}

func (m *MockAdapter) FetchModuleCompletion(ctx context.Context, courseID course.CourseID) (map[course.ModuleID]bool, error) {
	if err := m.begin(ctx, OpFetchModules, ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completionLocked(), nil
}

func (m *MockAdapter) FetchModuleQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) (*course.Quiz, error) {
	if err := m.begin(ctx, OpFetchQuiz, moduleID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	mod := m.course.Module(moduleID)
	if mod == nil {
		return nil, &Error{Kind: KindServerError, Op: OpFetchQuiz, Status: 404, Err: errNotFound}
	}
	if mod.Quiz == nil {
		return nil, nil
	}
	if m.HideAnswers {
		return mod.Quiz.WithoutAnswers(), nil
	}
	return mod.Quiz.DeepCopy(), nil
}

func (m *MockAdapter) PersistModuleCompletion(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID) error {
	if err := m.begin(ctx, OpPersistModule, moduleID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.course.Module(moduleID) == nil {
		return &Error{Kind: KindServerError, Op: OpPersistModule, Status: 404, Err: errNotFound}
	}
	m.completed[moduleID] = true
	m.persisted[moduleID]++
	return nil
}

func (m *MockAdapter) SubmitQuiz(ctx context.Context, courseID course.CourseID, moduleID course.ModuleID, quizID course.QuizID, sub course.Submission) (Score, error) {
	if err := m.begin(ctx, OpSubmitQuiz, moduleID); err != nil {
		return Score{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.scores) > 0 {
		s := m.scores[0]
		m.scores = m.scores[1:]
		return s, nil
	}

	mod := m.course.Module(moduleID)
	if mod == nil || mod.Quiz == nil || mod.Quiz.ID != quizID {
		return Score{}, &Error{Kind: KindServerError, Op: OpSubmitQuiz, Status: 404, Err: errNotFound}
	}
	res, err := quiz.Evaluate(mod.Quiz, sub)
	if err != nil {
		return Score{}, &Error{Kind: KindServerError, Op: OpSubmitQuiz, Status: 422, Err: err}
	}
	return Score{CorrectCount: res.CorrectCount, TotalQuestions: res.TotalQuestions}, nil
}

// begin records the call, runs the Before hook and pops a queued failure.
func (m *MockAdapter) begin(ctx context.Context, op Op, moduleID course.ModuleID) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, Call{Op: op, ModuleID: moduleID})
	before := m.Before
	m.mu.Unlock()

	if before != nil {
		before(ctx, op, moduleID)
	}
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if q := m.failures[op]; len(q) > 0 {
		m.failures[op] = q[1:]
		return q[0]
	}
	return nil
}

func (m *MockAdapter) completionLocked() map[course.ModuleID]bool {
	out := make(map[course.ModuleID]bool, len(m.course.Modules))
	for _, mod := range m.course.Modules {
		out[mod.ID] = m.completed[mod.ID]
	}
	return out
}
