package progression

import (
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/quiz"
	"github.com/abhisek/coursetrack/internal/remote"
)

// Kind names the completion flag a transition changed.
type Kind string

const (
	KindLesson Kind = "lesson"
	KindQuiz   Kind = "quiz"
	KindModule Kind = "module"
	KindCourse Kind = "course"
)

// Trigger records what caused a transition.
type Trigger string

const (
	TriggerLessonViewed  Trigger = "lesson-viewed"
	TriggerQuizSubmitted Trigger = "quiz-submitted"
	TriggerQuizPassed    Trigger = "quiz-passed"
	TriggerCascade       Trigger = "cascade"
	TriggerServer        Trigger = "server"
	TriggerLedger        Trigger = "ledger"
)

// Transition records a completion flag flipping from false to true.
type Transition struct {
	Kind    Kind
	ID      string
	Trigger Trigger
}

// SyncFailure is a remote call that failed while handling an event. Local
// state keeps the optimistic update.
type SyncFailure struct {
	Op       remote.Op
	ModuleID course.ModuleID
	Err      *remote.Error
}

func (f SyncFailure) Error() string { return f.Err.Error() }

// Outcome reports everything an Apply, Load or RetrySync call changed.
type Outcome struct {
	Transitions []Transition

	// ModulesCompleted lists modules that flipped to completed.
	ModulesCompleted []course.ModuleID

	// CourseCompleted is true on the one call that completed the course.
	CourseCompleted bool

	// Quiz is the reconciled score of a QuizSubmitted event. Nil when no
	// score could be established.
	Quiz *quiz.Reconciliation

	// Synced lists pending modules persisted by RetrySync.
	Synced []course.ModuleID

	SyncFailed []SyncFailure

	Violations []InvariantViolation
}

// Failed reports whether any remote call failed.
func (o Outcome) Failed() bool { return len(o.SyncFailed) > 0 }

func (o *Outcome) transition(k Kind, id string, t Trigger) {
	o.Transitions = append(o.Transitions, Transition{Kind: k, ID: id, Trigger: t})
}

func (o *Outcome) fail(op remote.Op, moduleID course.ModuleID, err *remote.Error) {
	o.SyncFailed = append(o.SyncFailed, SyncFailure{Op: op, ModuleID: moduleID, Err: err})
}

func (o *Outcome) merge(other Outcome) {
	o.Transitions = append(o.Transitions, other.Transitions...)
	o.ModulesCompleted = append(o.ModulesCompleted, other.ModulesCompleted...)
	o.CourseCompleted = o.CourseCompleted || other.CourseCompleted
	if other.Quiz != nil {
		o.Quiz = other.Quiz
	}
	o.Synced = append(o.Synced, other.Synced...)
	o.SyncFailed = append(o.SyncFailed, other.SyncFailed...)
	o.Violations = append(o.Violations, other.Violations...)
}
