// Package report renders course progress and event outcomes for the
// terminal.
package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursetrack/internal/completion"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/progression"
	"github.com/abhisek/coursetrack/internal/quiz"
	"github.com/abhisek/coursetrack/internal/ui/components"
	"github.com/abhisek/coursetrack/internal/ui/theme"
)

// DefaultWidth is the course progress bar width used when none is given.
const DefaultWidth = 40

const (
	markDone    = "✓"
	markTodo    = "○"
	markPending = "↻"
)

// Course renders the course header, an overall progress bar and one line
// per module. Modules in pending are flagged as not yet synced.
func Course(p completion.CourseProgress, pending []course.ModuleID, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	unsynced := make(map[course.ModuleID]bool, len(pending))
	for _, id := range pending {
		unsynced[id] = true
	}

	var b strings.Builder
	title := string(p.CourseID)
	if p.Title != "" {
		title = fmt.Sprintf("%s (%s)", p.Title, p.CourseID)
	}
	b.WriteString(theme.Title.Render(title))
	b.WriteString("  ")
	b.WriteString(theme.Hint.Render(fmt.Sprintf("%d/%d modules", p.ModulesCompleted, len(p.Modules))))
	b.WriteString("\n")
	b.WriteString(components.NewProgressBar("", p.Percent(), true, width).View())
	b.WriteString("\n\n")

	nameWidth := 0
	for _, m := range p.Modules {
		nameWidth = max(nameWidth, lipgloss.Width(moduleName(m)))
	}
	for _, m := range p.Modules {
		b.WriteString(moduleLine(m, nameWidth, unsynced[m.ModuleID]))
		b.WriteString("\n")
	}

	if p.Completed {
		b.WriteString("\n")
		b.WriteString(theme.Done.Render("Course completed."))
		b.WriteString("\n")
	}
	if len(pending) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Pending.Render(fmt.Sprintf("%d module completion(s) not synced; run `coursetrack retry`.", len(pending))))
		b.WriteString("\n")
	}
	return b.String()
}

func moduleName(m completion.ModuleProgress) string {
	if m.Title == "" {
		return string(m.ModuleID)
	}
	return m.Title
}

func moduleLine(m completion.ModuleProgress, nameWidth int, unsynced bool) string {
	mark := theme.Todo.Render(markTodo)
	if m.Completed {
		mark = theme.Done.Render(markDone)
	}
	name := lipgloss.NewStyle().Width(nameWidth).Render(moduleName(m))

	parts := []string{mark, theme.Body.Render(name), theme.Hint.Render(fmt.Sprintf("%d/%d lessons", m.LessonsCompleted, m.LessonsTotal))}
	if m.HasQuiz {
		if m.QuizCompleted {
			parts = append(parts, theme.Done.Render("quiz passed"))
		} else {
			parts = append(parts, theme.Todo.Render("quiz open"))
		}
	}
	if unsynced {
		parts = append(parts, theme.Pending.Render(markPending+" not synced"))
	}
	return strings.Join(parts, "  ")
}

// Outcome renders what a single engine call changed. It returns an empty
// string when nothing happened.
func Outcome(o progression.Outcome) string {
	var lines []string

	if o.Quiz != nil {
		lines = append(lines, quizLine(*o.Quiz))
	}
	for _, t := range o.Transitions {
		switch t.Kind {
		case progression.KindLesson:
			lines = append(lines, theme.Body.Render("lesson "+t.ID+" viewed"))
		case progression.KindModule:
			lines = append(lines, theme.Done.Render(markDone+" module "+t.ID+" completed"))
		}
	}
	if o.CourseCompleted {
		lines = append(lines, theme.Done.Render("Course completed. Congratulations!"))
	}
	for _, id := range o.Synced {
		lines = append(lines, theme.Done.Render("synced module "+string(id)))
	}
	for _, f := range o.SyncFailed {
		target := string(f.Op)
		if f.ModuleID != "" {
			target += " " + string(f.ModuleID)
		}
		lines = append(lines, theme.Failed.Render(fmt.Sprintf("sync failed (%s): %s", target, f.Err.Kind))+"  "+theme.Hint.Render(f.Err.Error()))
	}
	for _, v := range o.Violations {
		lines = append(lines, theme.Failed.Render("invariant violated: "+v.String()))
	}

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func quizLine(r quiz.Reconciliation) string {
	rec := r.Record
	verdict := theme.Failed.Render("failed")
	if rec.Passed {
		verdict = theme.Done.Render("passed")
	}
	line := fmt.Sprintf("quiz %d/%d (%.0f%%) ", rec.CorrectCount, rec.TotalQuestions, rec.ScorePercent) + verdict
	if r.Source == quiz.SourceLocal {
		line += "  " + theme.Pending.Render("local score, server unreachable")
	}
	if r.Discrepancy && r.Estimate != nil {
		line += "  " + theme.Pending.Render(fmt.Sprintf("local estimate was %d/%d", r.Estimate.CorrectCount, r.Estimate.TotalQuestions))
	}
	return line
}
