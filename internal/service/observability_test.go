package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestLogUseCaseObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogUseCaseObserver(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()

	obs.ObserveUseCase(ctx, UseCaseEvent{
		Name:     "stage-request",
		Duration: 12 * time.Millisecond,
		Success:  true,
		Fields:   map[string]any{"stage": "FS", "project_id": "p1"},
	})
	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "use_case=stage-request duration_ms=12 success=true project_id=p1 stage=FS")

	buf.Reset()
	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "plan-submit", Err: domain.Conflictf("already pending")})
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "plan-submit", Err: errors.New("disk full")})
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), `error="disk full"`)
}

func TestNewLogUseCaseObserver_NilLogger(t *testing.T) {
	assert.IsType(t, NoopUseCaseObserver{}, NewLogUseCaseObserver(nil))
}
