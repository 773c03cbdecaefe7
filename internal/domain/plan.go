package domain

import "time"

// PlanVersion is one versioned set of planned dates for a project.
type PlanVersion struct {
	ID              string
	ProjectID       string
	VersionNo       int
	Status          PlanVersionStatus
	AnchorStageCode *StageCode
	AnchorDate      *time.Time
	SkipWeekends    bool
	TransitionRule  TransitionRule
	PncApplicable   bool
	CreatedBy       string
	OwnerUserID     string
	SubmittedBy     *string
	SubmittedOn     *time.Time
	ApprovedBy      *string
	ApprovedOn      *time.Time
	RejectedBy      *string
	DecisionNote    string
	RowVersion      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Submit moves a draft to pending approval.
func (v *PlanVersion) Submit(userID string, now time.Time) error {
	if v.Status != PlanDraft {
		return Conflictf("plan version %d is %s, only drafts can be submitted", v.VersionNo, v.Status)
	}
	v.Status = PlanPendingApproval
	v.SubmittedBy = &userID
	v.SubmittedOn = &now
	v.UpdatedAt = now
	return nil
}

// Approve activates a pending version. The submitter may not approve.
func (v *PlanVersion) Approve(approverID string, now time.Time) error {
	if v.Status != PlanPendingApproval {
		return Conflictf("plan version %d is %s, only pending versions can be approved", v.VersionNo, v.Status)
	}
	if v.SubmittedBy != nil && *v.SubmittedBy == approverID {
		return Forbiddenf("plan version %d cannot be approved by its submitter", v.VersionNo)
	}
	v.Status = PlanApproved
	v.ApprovedBy = &approverID
	v.ApprovedOn = &now
	v.UpdatedAt = now
	return nil
}

func (v *PlanVersion) Reject(approverID, note string, now time.Time) error {
	if v.Status != PlanPendingApproval {
		return Conflictf("plan version %d is %s, only pending versions can be rejected", v.VersionNo, v.Status)
	}
	v.Status = PlanRejected
	v.RejectedBy = &approverID
	v.DecisionNote = note
	v.UpdatedAt = now
	return nil
}

// StagePlan holds the calculator output for one stage of a plan version.
// Both dates are nil when the stage is not scheduled.
type StagePlan struct {
	PlanVersionID string
	StageCode     StageCode
	PlannedStart  *time.Time
	PlannedDue    *time.Time
}

func (p StagePlan) Scheduled() bool {
	return p.PlannedStart != nil && p.PlannedDue != nil
}

// ScheduleSettings are the persisted calendar inputs for plan generation.
type ScheduleSettings struct {
	ProjectID       string
	AnchorStageCode StageCode
	AnchorDate      time.Time
	SkipWeekends    bool
	TransitionRule  TransitionRule
	UpdatedAt       time.Time
}

// PlanDuration is the persisted duration and optional manual override of a stage.
type PlanDuration struct {
	ProjectID     string
	StageCode     StageCode
	DurationDays  *int
	OverrideStart *time.Time
	OverrideDue   *time.Time
}

// Holiday is a non-working calendar date.
type Holiday struct {
	Date time.Time
	Name string
}

// PlanSnapshot preserves the stage plans of a version that stopped being active.
type PlanSnapshot struct {
	ID            string
	ProjectID     string
	PlanVersionID string
	TakenOn       time.Time
	TakenBy       string
	Payload       []byte
}
