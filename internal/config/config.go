// Package config loads runtime settings from STAGEFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Audit sink selections.
const (
	AuditSlog = "slog"
	AuditDB   = "db"
	AuditBoth = "both"
	AuditNone = "none"
)

type Config struct {
	// DBPath is the SQLite file, or ":memory:".
	DBPath string `validate:"required"`
	// WorkflowFile, when set, registers an extra workflow definition.
	WorkflowFile string `validate:"omitempty,file"`
	LogLevel     string `validate:"oneof=debug info warn error"`
	LogFormat    string `validate:"oneof=text json"`
	Audit        string `validate:"oneof=slog db both none"`
	// LogUseCases emits one log line per service call.
	LogUseCases bool
	// User is the acting user ID when --user is not given.
	User string `validate:"omitempty,max=128"`
}

var validate = validator.New()

// DefaultConfig returns the defaults, with the database under ~/.stageflow.
func DefaultConfig() Config {
	dbPath := "stageflow.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".stageflow", "stageflow.db")
	}
	return Config{
		DBPath:    dbPath,
		LogLevel:  "info",
		LogFormat: "text",
		Audit:     AuditBoth,
	}
}

// Load reads configuration from the environment, falling back to defaults
// for unset values, and validates the result.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with an injectable environment lookup.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if v := getenv("STAGEFLOW_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("STAGEFLOW_WORKFLOW_FILE"); v != "" {
		cfg.WorkflowFile = v
	}
	if v := getenv("STAGEFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv("STAGEFLOW_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := getenv("STAGEFLOW_AUDIT"); v != "" {
		cfg.Audit = strings.ToLower(v)
	}
	if v := getenv("STAGEFLOW_LOG_USE_CASES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid value for STAGEFLOW_LOG_USE_CASES: %w", err)
		}
		cfg.LogUseCases = b
	}
	if v := getenv("STAGEFLOW_USER"); v != "" {
		cfg.User = strings.TrimSpace(v)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (got %q)", fe.Field(), fe.Tag(), fmt.Sprint(fe.Value())))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
