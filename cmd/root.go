package cmd

import (
	"context"
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/config"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/logging"
	"github.com/abhisek/coursetrack/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "coursetrack",
	Short: "Track course progress against a course backend",
	Long: "coursetrack records lesson views and quiz attempts, cascades completion\n" +
		"from lessons to modules to the course, and syncs module completion\n" +
		"with the course backend.",
	SilenceUsage: true,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a config file (yaml, json or toml)")
	pf.String("db", "", "Path to SQLite database file (overrides COURSETRACK_DB env var)")
	pf.String("course", "", "Course ID (overrides COURSETRACK_COURSE env var)")
	pf.String("log-level", "", "Log level: debug, info, warn, error or off")
	pf.Bool("check-invariants", false, "Check completion invariants after every change")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(devserverCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DB = v
	}
	if v, _ := cmd.Flags().GetString("course"); v != "" {
		cfg.Course = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetBool("check-invariants"); v {
		cfg.Debug.Invariants = true
	}
	return cfg, cfg.Validate()
}

func newLogger(cmd *cobra.Command, cfg config.Config) *log.Logger {
	return logging.New(cfg.Log.Level, cmd.ErrOrStderr())
}

// resolveDBPath returns the database path from the config (--db flag or
// COURSETRACK_DB), then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

func courseID(cfg config.Config) (course.CourseID, error) {
	if cfg.Course == "" {
		return "", fmt.Errorf("no course selected: pass --course or set %s_COURSE", config.EnvPrefix)
	}
	return course.CourseID(cfg.Course), nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
