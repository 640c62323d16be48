package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/config"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/progression"
	"github.com/abhisek/coursetrack/internal/quiz"
	"github.com/abhisek/coursetrack/internal/remote"
	"github.com/abhisek/coursetrack/internal/report"
	"github.com/abhisek/coursetrack/internal/store"
)

// session is one CLI invocation against a course: config, logger, local
// store and a loaded engine.
type session struct {
	cfg      config.Config
	log      *log.Logger
	store    *store.Store
	engine   *progression.Engine
	courseID course.CourseID

	// loaded is the outcome of the initial load.
	loaded progression.Outcome
}

// openSession builds dependencies and loads the engine: the journaled,
// retrying HTTP adapter, the SQLite ledgers and the configured evaluator.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	id, err := courseID(cfg)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, cfg)

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	st.SessionID = uuid.NewString()

	adapter := remote.New(cfg.Remote(), st.SyncEventRepo(), logger)
	ledger := newStoreLedger(st)
	opts := progression.Options{
		Evaluator:       quiz.NewEvaluator(cfg.Quiz.PassThreshold),
		Logger:          logger,
		Lessons:         ledger,
		Pending:         ledger,
		Attempts:        ledger,
		Quizzes:         ledger,
		CheckInvariants: cfg.Debug.Invariants,
	}

	engine, out, err := progression.Open(cmd.Context(), adapter, id, opts)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load course %s: %w", id, err)
	}
	logger.Debugf("session %s opened course %s", st.SessionID, id)

	return &session{
		cfg:      cfg,
		log:      logger,
		store:    st,
		engine:   engine,
		courseID: id,
		loaded:   out,
	}, nil
}

func (s *session) Close() {
	s.engine.Close()
	if err := s.store.Close(); err != nil {
		s.log.Warnf("close database: %v", err)
	}
}

// printOutcome writes the rendered outcome, if any, to the command output.
func printOutcome(cmd *cobra.Command, out progression.Outcome) {
	if r := report.Outcome(out); r != "" {
		lipgloss.Fprint(cmd.OutOrStdout(), r)
	}
}

// printLoadFailures reports remote failures from the initial load only;
// seeding transitions are not news to the user.
func (s *session) printLoadFailures(cmd *cobra.Command) {
	printOutcome(cmd, progression.Outcome{
		SyncFailed: s.loaded.SyncFailed,
		Violations: s.loaded.Violations,
	})
}

func (s *session) printStatus(cmd *cobra.Command) {
	lipgloss.Fprint(cmd.OutOrStdout(), report.Course(s.engine.Progress(), s.engine.Pending(), report.DefaultWidth))
}
