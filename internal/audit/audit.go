// Package audit records who changed what. Sinks are written after the
// owning transaction commits; callers log sink failures instead of
// returning them.
package audit

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Entry is one audit record.
type Entry struct {
	At        time.Time
	Action    string
	Message   string
	Level     slog.Level
	UserID    string
	ProjectID string
	Data      map[string]any
}

// Sink persists or forwards audit entries.
type Sink interface {
	Log(ctx context.Context, e Entry) error
}

type slogSink struct {
	logger *slog.Logger
}

// NewSlogSink writes entries to logger under the "audit" message.
func NewSlogSink(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogSink{logger: logger}
}

func (s *slogSink) Log(ctx context.Context, e Entry) error {
	attrs := make([]slog.Attr, 0, 5+len(e.Data))
	attrs = append(attrs,
		slog.String("action", e.Action),
		slog.String("user_id", e.UserID),
	)
	if e.ProjectID != "" {
		attrs = append(attrs, slog.String("project_id", e.ProjectID))
	}
	if e.Message != "" {
		attrs = append(attrs, slog.String("detail", e.Message))
	}
	for k, v := range e.Data {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.logger.LogAttrs(ctx, e.Level, "audit", attrs...)
	return nil
}

type multiSink []Sink

// Multi fans an entry out to every sink concurrently and returns the first
// error. A failing sink never cancels the others.
func Multi(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Log(ctx context.Context, e Entry) error {
	var g errgroup.Group
	for _, s := range m {
		s := s
		g.Go(func() error { return s.Log(ctx, e) })
	}
	return g.Wait()
}

// Noop discards entries.
type Noop struct{}

func (Noop) Log(context.Context, Entry) error { return nil }
