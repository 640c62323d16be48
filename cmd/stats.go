package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quiz attempt statistics per module",
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

		ctx := cmd.Context()
		stats, err := s.QuizAttemptRepo().QuizStats(ctx, string(id))
		if err != nil {
			return fmt.Errorf("query quiz stats: %w", err)
		}
		views, err := s.LessonViewRepo().LessonViews(ctx, string(id))
		if err != nil {
			return fmt.Errorf("query lesson views: %w", err)
		}
		pending, err := s.PendingRepo().Pending(ctx, string(id))
		if err != nil {
			return fmt.Errorf("query pending: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Course %s: %d lesson(s) viewed, %d completion(s) not synced\n\n", id, len(views), len(pending))

		if len(stats) == 0 {
			fmt.Fprintln(w, "No quiz attempts recorded yet.")
			return nil
		}

		fmt.Fprintf(w, "%-16s  %8s  %8s  %-6s  %s\n", "Module", "Attempts", "Best", "Passed", "Last attempt")
		fmt.Fprintln(w, strings.Repeat("─", 64))

		var total int
		for _, st := range stats {
			fmt.Fprintf(w, "%-16s  %8d  %7.1f%%  %-6s  %s\n",
				truncate(st.ModuleID, 16),
				st.Attempts,
				st.BestPercent,
				mark(st.Passed),
				st.LastAttempt.Local().Format("2006-01-02 15:04:05"),
			)
			total += st.Attempts
		}
		fmt.Fprintln(w, strings.Repeat("─", 64))
		fmt.Fprintf(w, "%-16s  %8d\n", "TOTAL", total)
		return nil
	},
}
