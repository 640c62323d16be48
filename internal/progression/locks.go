package progression

import (
	"sync"

	"github.com/abhisek/coursetrack/internal/course"
)

// moduleLocks serializes work on each module's completion flags.
type moduleLocks struct {
	mu    sync.Mutex
	locks map[course.ModuleID]*sync.Mutex
}

// lock acquires the module's mutex and returns its unlock func.
func (l *moduleLocks) lock(id course.ModuleID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[course.ModuleID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
