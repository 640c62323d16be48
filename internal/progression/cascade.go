package progression

import (
	"context"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/remote"
)

// cascade recomputes the module's completion from the current store and,
// when it flips, persists it and checks the course. Caller holds the
// module lock.
func (e *Engine) cascade(ctx context.Context, id course.ModuleID, t Trigger, out *Outcome) {
	if e.store.Module(id) {
		return
	}
	m := e.course.Module(id)
	for _, l := range m.Lessons {
		if !e.store.Lesson(l.ID) {
			return
		}
	}

	// Quiz presence is only needed once every lesson is done.
	q, ok := e.resolveQuiz(ctx, id, out)
	if !ok {
		return
	}
	if q != nil && !e.store.Quiz(id) {
		return
	}

	e.store.SetModule(id, true)
	out.transition(KindModule, string(id), t)
	out.ModulesCompleted = append(out.ModulesCompleted, id)
	e.log.Debugf("module %s completed", id)

	e.persist(ctx, id, out)
	e.cascadeCourse(out)
}

// cascadeCourse marks the course completed when every module is. The
// course mutex makes the flip, and its report, happen once.
func (e *Engine) cascadeCourse(out *Outcome) {
	e.courseMu.Lock()
	defer e.courseMu.Unlock()

	if e.store.Course(e.course.ID) {
		return
	}
	for _, m := range e.course.Modules {
		if !e.store.Module(m.ID) {
			return
		}
	}
	e.store.SetCourse(e.course.ID, true)
	out.transition(KindCourse, string(e.course.ID), TriggerCascade)
	out.CourseCompleted = true
	e.log.Infof("course %s completed", e.course.ID)
}

// persist sends the module completion to the server. On failure the module
// stays completed locally and becomes pending. Caller holds the module lock.
func (e *Engine) persist(ctx context.Context, id course.ModuleID, out *Outcome) {
	err := e.adapter.PersistModuleCompletion(ctx, e.course.ID, id)
	if err != nil {
		rerr := asRemote(remote.OpPersistModule, err)
		out.fail(remote.OpPersistModule, id, rerr)
		e.log.Warnf("persist completion of module %s: %v", id, rerr)
		e.setPending(id, true)
		if e.opts.Pending != nil {
			if lerr := e.opts.Pending.AddPending(context.WithoutCancel(ctx), e.course.ID, id); lerr != nil {
				e.log.Warnf("record pending completion %s: %v", id, lerr)
			}
		}
		return
	}

	e.mu.Lock()
	wasPending := e.pending[id]
	delete(e.pending, id)
	e.mu.Unlock()

	if wasPending {
		out.Synced = append(out.Synced, id)
		if e.opts.Pending != nil {
			if lerr := e.opts.Pending.RemovePending(ctx, e.course.ID, id); lerr != nil {
				e.log.Warnf("clear pending completion %s: %v", id, lerr)
			}
		}
	}
}

// resolveQuiz returns the module's quiz, fetching it on first use. ok is
// false when the fetch failed; the failure is added to out. Caller holds
// the module lock.
func (e *Engine) resolveQuiz(ctx context.Context, id course.ModuleID, out *Outcome) (q *course.Quiz, ok bool) {
	e.mu.Lock()
	if e.known[id] {
		q = e.quizzes[id]
		e.mu.Unlock()
		return q, true
	}
	e.mu.Unlock()

	q, err := e.adapter.FetchModuleQuiz(ctx, e.course.ID, id)
	if err != nil {
		rerr := asRemote(remote.OpFetchQuiz, err)
		out.fail(remote.OpFetchQuiz, id, rerr)
		e.log.Warnf("fetch quiz of module %s: %v", id, rerr)
		return nil, false
	}

	e.mu.Lock()
	e.quizzes[id] = q
	e.known[id] = true
	e.mu.Unlock()
	return q, true
}
