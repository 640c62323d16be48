package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/progression"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson <lesson-id>",
	Short: "Record that a lesson was viewed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		s.printLoadFailures(cmd)

		moduleID, _ := cmd.Flags().GetString("module")
		out, err := s.engine.Apply(cmd.Context(), progression.LessonViewed{
			ModuleID: course.ModuleID(moduleID),
			LessonID: course.LessonID(args[0]),
		})
		if err != nil {
			return err
		}
		printOutcome(cmd, out)
		return nil
	},
}

func init() {
	lessonCmd.Flags().String("module", "", "Module the lesson belongs to (checked when given)")
}
