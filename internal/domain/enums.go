package domain

import (
	"fmt"
	"strings"
)

type StageStatus string

const (
	StageNotStarted StageStatus = "NotStarted"
	StageInProgress StageStatus = "InProgress"
	StageCompleted  StageStatus = "Completed"
	StageSkipped    StageStatus = "Skipped"
	StageBlocked    StageStatus = "Blocked"
)

// stageTransitions is the closed table of allowed status changes.
// Same-status changes are never allowed.
var stageTransitions = map[StageStatus][]StageStatus{
	StageNotStarted: {StageInProgress, StageCompleted, StageBlocked, StageSkipped},
	StageInProgress: {StageCompleted, StageBlocked, StageSkipped, StageNotStarted},
	StageBlocked:    {StageInProgress, StageNotStarted, StageSkipped},
	StageSkipped:    {StageNotStarted, StageBlocked},
	StageCompleted:  {StageBlocked, StageSkipped},
}

// ParseStageStatus accepts the canonical names case-insensitively, plus
// snake_case aliases used on the command line.
func ParseStageStatus(s string) (StageStatus, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for status := range stageTransitions {
		if strings.ToLower(string(status)) == key {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown stage status %q: %w", s, ErrValidation)
}

func (s StageStatus) Valid() bool {
	_, ok := stageTransitions[s]
	return ok
}

// CanTransition reports whether a stage may move from one status to another.
func CanTransition(from, to StageStatus) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TransitionRule string

const (
	RuleSameDay        TransitionRule = "SameDay"
	RuleNextWorkingDay TransitionRule = "NextWorkingDay"
)

func ParseTransitionRule(s string) (TransitionRule, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "sameday":
		return RuleSameDay, nil
	case "nextworkingday", "":
		return RuleNextWorkingDay, nil
	}
	return "", fmt.Errorf("unknown transition rule %q: %w", s, ErrValidation)
}

type PlanVersionStatus string

const (
	PlanDraft           PlanVersionStatus = "Draft"
	PlanPendingApproval PlanVersionStatus = "PendingApproval"
	PlanApproved        PlanVersionStatus = "Approved"
	PlanRejected        PlanVersionStatus = "Rejected"
)

type DecisionStatus string

const (
	DecisionPending    DecisionStatus = "Pending"
	DecisionApproved   DecisionStatus = "Approved"
	DecisionRejected   DecisionStatus = "Rejected"
	DecisionSuperseded DecisionStatus = "Superseded"
)

type ChangeAction string

const (
	ActionRequested      ChangeAction = "Requested"
	ActionDirectApply    ChangeAction = "DirectApply"
	ActionApplied        ChangeAction = "Applied"
	ActionSuperseded     ChangeAction = "Superseded"
	ActionBackfill       ChangeAction = "Backfill"
	ActionActualsUpdated ChangeAction = "ActualsUpdated"
)

type Role string

const (
	RoleHoD       Role = "HoD"
	RoleApprover  Role = "Approver"
	RoleRequester Role = "Requester"
)

func ParseRole(s string) (Role, error) {
	for _, r := range []Role{RoleHoD, RoleApprover, RoleRequester} {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q: %w", s, ErrValidation)
}
