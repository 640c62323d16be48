// Package completion holds the completion facts of a progression session.
//
// The store is intentionally dumb: it records lesson, quiz, module, and
// course flags and hands out immutable snapshots. Business rules about when
// a flag may change live in the progression engine.
package completion

import (
	"sync"

	"github.com/abhisek/coursetrack/internal/course"
)

// Store is a concurrency-safe set of completion flags. The zero value is
// not usable; call NewStore.
type Store struct {
	mu      sync.RWMutex
	lessons map[course.LessonID]bool
	quizzes map[course.ModuleID]bool
	modules map[course.ModuleID]bool
	courses map[course.CourseID]bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset discards every flag. Only a full course re-fetch should call it.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons = make(map[course.LessonID]bool)
	s.quizzes = make(map[course.ModuleID]bool)
	s.modules = make(map[course.ModuleID]bool)
	s.courses = make(map[course.CourseID]bool)
}

// SetLesson records whether the lesson is completed.
func (s *Store) SetLesson(id course.LessonID, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[id] = v
}

// Lesson reports whether the lesson is completed.
func (s *Store) Lesson(id course.LessonID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lessons[id]
}

// HasLesson reports whether the lesson has an entry, true or false.
func (s *Store) HasLesson(id course.LessonID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lessons[id]
	return ok
}

// SetQuiz records whether the module's quiz is passed.
func (s *Store) SetQuiz(id course.ModuleID, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[id] = v
}

// Quiz reports whether the module's quiz is passed.
func (s *Store) Quiz(id course.ModuleID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizzes[id]
}

// HasQuiz reports whether the module's quiz has an entry.
func (s *Store) HasQuiz(id course.ModuleID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.quizzes[id]
	return ok
}

// SetModule records whether the module is completed.
func (s *Store) SetModule(id course.ModuleID, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[id] = v
}

// Module reports whether the module is completed.
func (s *Store) Module(id course.ModuleID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modules[id]
}

// HasModule reports whether the module has an entry.
func (s *Store) HasModule(id course.ModuleID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.modules[id]
	return ok
}

// SetCourse records whether the course is completed.
func (s *Store) SetCourse(id course.CourseID, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[id] = v
}

// Course reports whether the course is completed.
func (s *Store) Course(id course.CourseID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.courses[id]
}

// HasCourse reports whether the course has an entry.
func (s *Store) HasCourse(id course.CourseID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.courses[id]
	return ok
}

// Snapshot returns an immutable copy of every flag.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		lessons: copyMap(s.lessons),
		quizzes: copyMap(s.quizzes),
		modules: copyMap(s.modules),
		courses: copyMap(s.courses),
	}
}

func copyMap[K comparable](m map[K]bool) map[K]bool {
	out := make(map[K]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
