package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/devserver"
	"github.com/abhisek/coursetrack/internal/quiz"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver --fixture <course.json>",
	Short: "Serve a course fixture as a local course backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		fixture, _ := cmd.Flags().GetString("fixture")
		addr, _ := cmd.Flags().GetString("addr")
		token, _ := cmd.Flags().GetString("token")
		reveal, _ := cmd.Flags().GetBool("reveal-answers")
		stringScores, _ := cmd.Flags().GetBool("string-scores")
		quiet, _ := cmd.Flags().GetBool("quiet")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if token == "" {
			token = cfg.API.Token
		}

		c, err := course.LoadFile(fixture)
		if err != nil {
			return err
		}

		logger := newLogger(cmd, cfg)
		srv, err := devserver.New(devserver.Options{
			Course:         c,
			Token:          token,
			RevealAnswers:  reveal,
			StringScores:   stringScores,
			Evaluator:      quiz.NewEvaluator(cfg.Quiz.PassThreshold),
			Logger:         logger,
			DisableReqLogs: quiet,
		})
		if err != nil {
			return fmt.Errorf("fixture %s: %w", fixture, err)
		}

		ctx := cmd.Context()
		errc := make(chan error, 1)
		go func() { errc <- srv.Start(addr) }()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		logger.Infof("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errc
	},
}

func init() {
	f := devserverCmd.Flags()
	f.String("fixture", "", "Course fixture JSON file")
	f.String("addr", "localhost:8080", "Listen address")
	f.String("token", "", "Bearer token required from clients (default: api.token from config)")
	f.Bool("reveal-answers", false, "Include answer flags in quiz payloads")
	f.Bool("string-scores", false, "Send quiz scores as JSON strings")
	f.Bool("quiet", false, "Disable request logging")
	_ = devserverCmd.MarkFlagRequired("fixture")
}
