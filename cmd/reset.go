package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete local data for the selected course",
	Long: "Delete lesson views, quiz attempts, pending completions and the sync\n" +
		"journal recorded locally for the selected course. Server state is not\n" +
		"touched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to delete local data without --yes")
		}

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

		if err := s.ResetCourse(cmd.Context(), string(id)); err != nil {
			return fmt.Errorf("reset course %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Local data for course %s deleted.\n", id)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm deletion")
}
