package completion

import (
	"github.com/abhisek/coursetrack/internal/course"
)

// Snapshot is a read-only view of the store at a point in time.
type Snapshot struct {
	lessons map[course.LessonID]bool
	quizzes map[course.ModuleID]bool
	modules map[course.ModuleID]bool
	courses map[course.CourseID]bool
}

func (s Snapshot) LessonCompleted(id course.LessonID) bool { return s.lessons[id] }
func (s Snapshot) QuizCompleted(id course.ModuleID) bool   { return s.quizzes[id] }
func (s Snapshot) ModuleCompleted(id course.ModuleID) bool { return s.modules[id] }
func (s Snapshot) CourseCompleted(id course.CourseID) bool { return s.courses[id] }

// Lessons returns a copy of the lesson flags.
func (s Snapshot) Lessons() map[course.LessonID]bool { return copyMap(s.lessons) }

// Quizzes returns a copy of the quiz flags, keyed by owning module.
func (s Snapshot) Quizzes() map[course.ModuleID]bool { return copyMap(s.quizzes) }

// Modules returns a copy of the module flags.
func (s Snapshot) Modules() map[course.ModuleID]bool { return copyMap(s.modules) }

// Courses returns a copy of the course flags.
func (s Snapshot) Courses() map[course.CourseID]bool { return copyMap(s.courses) }

// Equal reports whether two snapshots hold the same true flags. Entries
// explicitly set to false compare equal to absent ones.
func (s Snapshot) Equal(o Snapshot) bool {
	return sameTrue(s.lessons, o.lessons) &&
		sameTrue(s.quizzes, o.quizzes) &&
		sameTrue(s.modules, o.modules) &&
		sameTrue(s.courses, o.courses)
}

func sameTrue[K comparable](a, b map[K]bool) bool {
	for k, v := range a {
		if v != b[k] {
			return false
		}
	}
	for k, v := range b {
		if v != a[k] {
			return false
		}
	}
	return true
}

// ModuleProgress summarizes one module for display.
type ModuleProgress struct {
	ModuleID         course.ModuleID
	Title            string
	LessonsCompleted int
	LessonsTotal     int
	HasQuiz          bool
	QuizCompleted    bool
	Completed        bool
}

// Percent returns lesson progress in the range 0.0-1.0. A module with no
// lessons reports its completion flag.
func (p ModuleProgress) Percent() float64 {
	if p.LessonsTotal == 0 {
		if p.Completed {
			return 1
		}
		return 0
	}
	return float64(p.LessonsCompleted) / float64(p.LessonsTotal)
}

// CourseProgress summarizes a course for display.
type CourseProgress struct {
	CourseID         course.CourseID
	Title            string
	Modules          []ModuleProgress
	ModulesCompleted int
	Completed        bool
}

// Percent returns module progress in the range 0.0-1.0.
func (p CourseProgress) Percent() float64 {
	if len(p.Modules) == 0 {
		if p.Completed {
			return 1
		}
		return 0
	}
	return float64(p.ModulesCompleted) / float64(len(p.Modules))
}

// Progress projects the snapshot onto the course structure.
func (s Snapshot) Progress(c *course.Course) CourseProgress {
	cp := CourseProgress{
		CourseID:  c.ID,
		Title:     c.Title,
		Completed: s.CourseCompleted(c.ID),
	}
	for _, m := range c.Modules {
		mp := ModuleProgress{
			ModuleID:      m.ID,
			Title:         m.Title,
			LessonsTotal:  len(m.Lessons),
			HasQuiz:       m.Quiz != nil,
			QuizCompleted: s.QuizCompleted(m.ID),
			Completed:     s.ModuleCompleted(m.ID),
		}
		for _, l := range m.Lessons {
			if s.LessonCompleted(l.ID) {
				mp.LessonsCompleted++
			}
		}
		if mp.Completed {
			cp.ModulesCompleted++
		}
		cp.Modules = append(cp.Modules, mp)
	}
	return cp
}
