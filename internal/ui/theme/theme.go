// Package theme holds the lipgloss styles used by terminal output.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Purple
	Accent  = lipgloss.Color("#14B8A6") // Teal
	Warn    = lipgloss.Color("#F97316") // Orange
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC")
	TextDim = lipgloss.Color("#94A3B8")
	Border  = lipgloss.Color("#334155")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Text)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Border).
	Padding(0, 1)

// Completion states
var (
	Done = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Todo = lipgloss.NewStyle().
		Foreground(TextDim)

	Pending = lipgloss.NewStyle().
		Foreground(Warn)

	Failed = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)

// Progress bar cells
var (
	ProgressFilled = lipgloss.NewStyle().
			Foreground(Accent)

	ProgressEmpty = lipgloss.NewStyle().
			Foreground(Border)
)
