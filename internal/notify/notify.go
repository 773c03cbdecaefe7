// Package notify publishes stage and plan events to interested users.
// Message formatting belongs to the delivery side; this package only
// records what happened and for whom.
package notify

import (
	"context"
	"time"
)

// Kinds published by the services.
const (
	KindStageRequested = "stage.requested"
	KindStageDecided   = "stage.decided"
	KindStageApplied   = "stage.applied"
	KindPlanSubmitted  = "plan.submitted"
	KindPlanDecided    = "plan.decided"
)

type Notification struct {
	ID          string
	Kind        string
	Recipient   string
	Payload     map[string]any
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Noop drops every notification.
type Noop struct{}

func (Noop) Publish(context.Context, Notification) error { return nil }
