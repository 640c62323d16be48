package progression

import (
	"fmt"
	"sort"

	"github.com/abhisek/coursetrack/internal/completion"
	"github.com/abhisek/coursetrack/internal/course"
)

// InvariantViolation describes an impossible completion state. Violations
// indicate a caller bug; they are logged and never corrected.
type InvariantViolation struct {
	Rule   string
	ID     string
	Detail string
}

func (v InvariantViolation) String() string {
	return fmt.Sprintf("%s (%s): %s", v.Rule, v.ID, v.Detail)
}

// Invariant rule names.
const (
	RuleCourseBeforeModules = "course-before-modules"
	RuleModuleBeforeLessons = "module-before-lessons"
	RuleModuleBeforeQuiz    = "module-before-quiz"
	RuleUnknownID           = "unknown-id"
)

// CheckInvariants reports every combination of flags in snap that the
// cascade rules could not have produced for c. Modules whose quiz presence
// is unknown are not checked against the quiz rule.
func CheckInvariants(c *course.Course, snap completion.Snapshot) []InvariantViolation {
	var out []InvariantViolation

	if snap.CourseCompleted(c.ID) {
		for _, m := range c.Modules {
			if !snap.ModuleCompleted(m.ID) {
				out = append(out, InvariantViolation{
					Rule:   RuleCourseBeforeModules,
					ID:     string(c.ID),
					Detail: fmt.Sprintf("course completed while module %s is not", m.ID),
				})
			}
		}
	}

	lessons := make(map[course.LessonID]bool)
	modules := make(map[course.ModuleID]bool)
	for _, m := range c.Modules {
		modules[m.ID] = true
		for _, l := range m.Lessons {
			lessons[l.ID] = true
		}
		if !snap.ModuleCompleted(m.ID) {
			continue
		}
		for _, l := range m.Lessons {
			if !snap.LessonCompleted(l.ID) {
				out = append(out, InvariantViolation{
					Rule:   RuleModuleBeforeLessons,
					ID:     string(m.ID),
					Detail: fmt.Sprintf("module completed while lesson %s is not", l.ID),
				})
			}
		}
		if m.QuizKnown && m.Quiz != nil && !snap.QuizCompleted(m.ID) {
			out = append(out, InvariantViolation{
				Rule:   RuleModuleBeforeQuiz,
				ID:     string(m.ID),
				Detail: fmt.Sprintf("module completed while quiz %s is not", m.Quiz.ID),
			})
		}
	}

	for _, id := range sortedTrue(snap.Lessons()) {
		if !lessons[id] {
			out = append(out, InvariantViolation{Rule: RuleUnknownID, ID: string(id), Detail: "lesson not in course"})
		}
	}
	for _, id := range sortedTrue(snap.Modules()) {
		if !modules[id] {
			out = append(out, InvariantViolation{Rule: RuleUnknownID, ID: string(id), Detail: "module not in course"})
		}
	}
	return out
}

func sortedTrue[K ~string](m map[K]bool) []K {
	out := make([]K, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
