// Package config loads coursetrack settings from defaults, an optional
// config file, a .env file and COURSETRACK_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/coursetrack/internal/quiz"
	"github.com/abhisek/coursetrack/internal/remote"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "COURSETRACK"

// Config holds all coursetrack configuration.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Retry RetryConfig `mapstructure:"retry"`
	Quiz  QuizConfig  `mapstructure:"quiz"`
	Log   LogConfig   `mapstructure:"log"`
	Debug DebugConfig `mapstructure:"debug"`

	// Course is the default course ID for CLI commands.
	Course string `mapstructure:"course"`

	// DB overrides the SQLite path. Empty uses the XDG default.
	DB string `mapstructure:"db"`
}

// APIConfig configures the course backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// RetryConfig configures retries of idempotent remote calls.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	InitialWait time.Duration `mapstructure:"initial_wait" validate:"gte=0"`
	MaxWait     time.Duration `mapstructure:"max_wait" validate:"gtefield=InitialWait"`
	Multiplier  float64       `mapstructure:"multiplier" validate:"gte=1"`
}

// QuizConfig configures quiz scoring.
type QuizConfig struct {
	PassThreshold float64 `mapstructure:"pass_threshold" validate:"gt=0,lte=100"`
}

// LogConfig configures the leveled logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error off"`
}

// DebugConfig holds developer checks.
type DebugConfig struct {
	// Invariants enables completion-state invariant checks after each event.
	Invariants bool `mapstructure:"invariants"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	rc := remote.DefaultConfig()
	return Config{
		API: APIConfig{
			BaseURL: rc.BaseURL,
			Timeout: rc.Timeout,
		},
		Retry: RetryConfig{
			MaxAttempts: rc.Retry.MaxAttempts,
			InitialWait: rc.Retry.InitialWait,
			MaxWait:     rc.Retry.MaxWait,
			Multiplier:  rc.Retry.Multiplier,
		},
		Quiz: QuizConfig{PassThreshold: quiz.DefaultPassThreshold},
		Log:  LogConfig{Level: "info"},
	}
}

// Load builds a Config. path names an explicit config file; when empty,
// config.{yaml,json,toml} is looked up in the user config directory and
// skipped if absent. A .env file in the working directory is loaded when
// present; it never overrides variables already set.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if dir, err := configDir(); err == nil {
		v.SetConfigName("config")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.token", d.API.Token)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_wait", d.Retry.InitialWait)
	v.SetDefault("retry.max_wait", d.Retry.MaxWait)
	v.SetDefault("retry.multiplier", d.Retry.Multiplier)
	v.SetDefault("quiz.pass_threshold", d.Quiz.PassThreshold)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("debug.invariants", d.Debug.Invariants)
	v.SetDefault("course", d.Course)
	v.SetDefault("db", d.DB)
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func configDir() (string, error) {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, "coursetrack"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "coursetrack"), nil
}

var (
	validate   = validator.New()
	translator ut.Translator
)

func init() {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
}

// Validate checks every field and reports all failures in one error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Translate(translator)))
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
}

// Remote converts the API and retry settings into a remote.Config.
func (c Config) Remote() remote.Config {
	return remote.Config{
		BaseURL: c.API.BaseURL,
		Token:   c.API.Token,
		Timeout: c.API.Timeout,
		Retry: remote.RetryConfig{
			MaxAttempts: c.Retry.MaxAttempts,
			InitialWait: c.Retry.InitialWait,
			MaxWait:     c.Retry.MaxWait,
			Multiplier:  c.Retry.Multiplier,
		},
	}
}
