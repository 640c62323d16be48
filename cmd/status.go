package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show course progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if reload, _ := cmd.Flags().GetBool("reload"); reload {
			out, err := s.engine.Reload(cmd.Context())
			if err != nil {
				return err
			}
			s.loaded = out
		}

		s.printLoadFailures(cmd)
		s.printStatus(cmd)
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("reload", false, "Discard local completion state and re-fetch it from the server")
}
