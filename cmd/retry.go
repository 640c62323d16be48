package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-send module completions that failed to sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		s.printLoadFailures(cmd)

		if len(s.engine.Pending()) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to sync.")
			return nil
		}
		out, err := s.engine.RetrySync(cmd.Context())
		if err != nil {
			return err
		}
		printOutcome(cmd, out)
		if out.Failed() {
			return fmt.Errorf("%d module completion(s) still not synced", len(s.engine.Pending()))
		}
		return nil
	},
}
