package progression

import "github.com/abhisek/coursetrack/internal/course"

// Event is a learner action applied to the engine. The set of events is
// closed: LessonViewed, QuizSubmitted and QuizPassed.
type Event interface {
	event()
}

// LessonViewed marks a lesson as viewed. ModuleID may be empty, in which
// case the owning module is looked up from the course.
type LessonViewed struct {
	ModuleID course.ModuleID
	LessonID course.LessonID
}

// QuizSubmitted scores a submission for the module's quiz. QuizID may be
// empty to mean "the module's quiz".
type QuizSubmitted struct {
	ModuleID   course.ModuleID
	QuizID     course.QuizID
	Submission course.Submission
}

// QuizPassed records a pass confirmed by the server without a new
// submission.
type QuizPassed struct {
	ModuleID course.ModuleID
	QuizID   course.QuizID
}

func (LessonViewed) event()  {}
func (QuizSubmitted) event() {}
func (QuizPassed) event()    {}
