package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/store"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent calls to the course backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		failed, _ := cmd.Flags().GetBool("failed")
		op, _ := cmd.Flags().GetString("op")
		all, _ := cmd.Flags().GetBool("all")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		opts := store.QueryOpts{Limit: limit}
		if !all {
			opts.CourseID = cfg.Course
		}
		events, err := s.SyncEventRepo().SyncEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No sync events found.")
			return nil
		}

		// Header.
		fmt.Fprintf(w, "%-6s  %-19s  %-14s  %-10s  %-12s  %-6s  %-6s  %s\n",
			"Seq", "Timestamp", "Op", "Course", "Module", "Ms", "Status", "OK")
		fmt.Fprintln(w, strings.Repeat("─", 96))

		for _, e := range events {
			if failed && e.Success {
				continue
			}
			if op != "" && e.Op != op {
				continue
			}
			writeSyncEvent(w, e)
		}
		return nil
	},
}

var journalAttemptsCmd = &cobra.Command{
	Use:   "attempts <module-id>",
	Short: "List quiz attempts for a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		id, err := courseID(cfg)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		attempts, err := s.QuizAttemptRepo().QuizAttempts(cmd.Context(), string(id), args[0])
		if err != nil {
			return fmt.Errorf("query attempts: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(attempts) == 0 {
			fmt.Fprintf(w, "No attempts recorded for module %s.\n", args[0])
			return nil
		}

		fmt.Fprintf(w, "%-19s  %-8s  %-7s  %-6s  %-6s  %s\n", "Timestamp", "Score", "Percent", "Passed", "Source", "Note")
		fmt.Fprintln(w, strings.Repeat("─", 72))
		for _, a := range attempts {
			note := ""
			if a.Discrepancy {
				note = "local estimate disagreed"
			}
			fmt.Fprintf(w, "%-19s  %-8s  %6.1f%%  %-6s  %-6s  %s\n",
				a.Timestamp.Local().Format("2006-01-02 15:04:05"),
				fmt.Sprintf("%d/%d", a.CorrectCount, a.TotalQuestions),
				a.ScorePercent,
				mark(a.Passed),
				a.Source,
				note,
			)
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().Int("limit", 50, "Maximum number of events")
	journalCmd.Flags().Bool("failed", false, "Only show failed calls")
	journalCmd.Flags().String("op", "", "Only show one operation (fetch-modules, fetch-quiz, persist-module, submit-quiz)")
	journalCmd.Flags().Bool("all", false, "Show events for every course")

	journalCmd.AddCommand(journalAttemptsCmd)
}

func writeSyncEvent(w io.Writer, e store.SyncEvent) {
	status := "-"
	if e.Status != 0 {
		status = fmt.Sprintf("%d", e.Status)
	}
	fmt.Fprintf(w, "%-6d  %-19s  %-14s  %-10s  %-12s  %-6d  %-6s  %s\n",
		e.Sequence,
		e.Timestamp.Local().Format("2006-01-02 15:04:05"),
		e.Op,
		truncate(e.CourseID, 10),
		truncate(e.ModuleID, 12),
		e.LatencyMs,
		status,
		mark(e.Success),
	)
	if !e.Success && e.ErrorMessage != "" {
		fmt.Fprintf(w, "        %s: %s\n", e.ErrorKind, e.ErrorMessage)
	}
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
