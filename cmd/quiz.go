package cmd

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/progression"
	"github.com/abhisek/coursetrack/internal/ui/theme"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Show, submit or confirm a module quiz",
}

var quizShowCmd = &cobra.Command{
	Use:   "show <module-id>",
	Short: "Print the questions of a module's quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		s.printLoadFailures(cmd)

		m := s.engine.Course().Module(course.ModuleID(args[0]))
		if m == nil {
			return fmt.Errorf("%w: %s", progression.ErrUnknownModule, args[0])
		}
		if !m.QuizKnown {
			return fmt.Errorf("quiz of module %s could not be fetched", m.ID)
		}
		if m.Quiz == nil {
			return fmt.Errorf("%w: %s", progression.ErrNoQuiz, m.ID)
		}
		lipgloss.Fprint(cmd.OutOrStdout(), renderQuiz(m.Quiz))
		return nil
	},
}

var quizSubmitCmd = &cobra.Command{
	Use:   "submit <module-id> --answer <question>=<option>...",
	Short: "Submit answers to a module's quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetStringArray("answer")
		sub, err := parseAnswers(raw)
		if err != nil {
			return err
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		s.printLoadFailures(cmd)

		quizID, _ := cmd.Flags().GetString("quiz")
		out, err := s.engine.Apply(cmd.Context(), progression.QuizSubmitted{
			ModuleID:   course.ModuleID(args[0]),
			QuizID:     course.QuizID(quizID),
			Submission: sub,
		})
		if err != nil {
			return err
		}
		if out.Quiz == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No score available: the server could not be reached and the quiz has no local answer key.")
		}
		printOutcome(cmd, out)
		return nil
	},
}

var quizPassCmd = &cobra.Command{
	Use:   "pass <module-id>",
	Short: "Mark a module's quiz as passed (confirmed elsewhere)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		s.printLoadFailures(cmd)

		quizID, _ := cmd.Flags().GetString("quiz")
		out, err := s.engine.Apply(cmd.Context(), progression.QuizPassed{
			ModuleID: course.ModuleID(args[0]),
			QuizID:   course.QuizID(quizID),
		})
		if err != nil {
			return err
		}
		printOutcome(cmd, out)
		return nil
	},
}

func init() {
	quizSubmitCmd.Flags().StringArrayP("answer", "a", nil, "Answer as <question-id>=<option-id> (repeatable)")
	quizSubmitCmd.Flags().String("quiz", "", "Quiz ID (checked when given)")
	quizPassCmd.Flags().String("quiz", "", "Quiz ID (checked when given)")

	quizCmd.AddCommand(quizShowCmd)
	quizCmd.AddCommand(quizSubmitCmd)
	quizCmd.AddCommand(quizPassCmd)
}

// parseAnswers turns question=option pairs into a submission. A question
// answered twice is an error.
func parseAnswers(raw []string) (course.Submission, error) {
	sub := make(course.Submission, len(raw))
	for _, a := range raw {
		q, o, ok := strings.Cut(a, "=")
		q, o = strings.TrimSpace(q), strings.TrimSpace(o)
		if !ok || q == "" || o == "" {
			return nil, fmt.Errorf("invalid answer %q: want <question-id>=<option-id>", a)
		}
		if _, dup := sub[course.QuestionID(q)]; dup {
			return nil, fmt.Errorf("question %s answered twice", q)
		}
		sub[course.QuestionID(q)] = course.OptionID(o)
	}
	return sub, nil
}

func renderQuiz(q *course.Quiz) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Quiz " + string(q.ID)))
	b.WriteString("\n")
	for i, question := range q.Questions {
		b.WriteString("\n")
		b.WriteString(theme.Heading.Render(fmt.Sprintf("%d. %s", i+1, question.Text)))
		b.WriteString("  ")
		b.WriteString(theme.Hint.Render(string(question.ID)))
		b.WriteString("\n")
		for _, o := range question.Options {
			b.WriteString(fmt.Sprintf("   %s  %s\n", theme.Body.Render(o.Value), theme.Hint.Render(string(o.ID))))
		}
	}
	return b.String()
}
