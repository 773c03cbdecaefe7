package domain

import "time"

type StageChangeRequest struct {
	ID                string
	ProjectID         string
	StageCode         StageCode
	RequestedStatus   StageStatus
	RequestedDate     *time.Time
	Note              string
	RequestedByUserID string
	RequestedOn       time.Time
	DecisionStatus    DecisionStatus
	DecidedByUserID   *string
	DecidedOn         *time.Time
	DecisionNote      string
	RowVersion        int64
}

// SupersededNote is recorded on a pending request replaced by a direct apply.
const SupersededNote = "Superseded by HoD direct apply"

// Decide records a decision on a pending request.
func (r *StageChangeRequest) Decide(status DecisionStatus, userID, note string, now time.Time) error {
	if r.DecisionStatus != DecisionPending {
		return Conflictf("request %s is already %s", r.ID, r.DecisionStatus)
	}
	if status == DecisionPending {
		return Validationf("decision must not be Pending")
	}
	r.DecisionStatus = status
	r.DecidedByUserID = &userID
	r.DecidedOn = &now
	r.DecisionNote = note
	return nil
}

// StageChangeLog is one append-only audit row for a stage mutation.
type StageChangeLog struct {
	ID            int64
	ProjectID     string
	StageCode     StageCode
	Action        ChangeAction
	FromStatus    *StageStatus
	ToStatus      *StageStatus
	ToActualStart *time.Time
	ToCompletedOn *time.Time
	At            time.Time
	Note          string
	ByUserID      string
}

// NewChangeLog builds a log row capturing the stage's state after a mutation.
func NewChangeLog(stage *ProjectStage, action ChangeAction, from StageStatus, userID, note string, at time.Time) *StageChangeLog {
	fromStatus := from
	toStatus := stage.Status
	return &StageChangeLog{
		ProjectID:     stage.ProjectID,
		StageCode:     stage.StageCode,
		Action:        action,
		FromStatus:    &fromStatus,
		ToStatus:      &toStatus,
		ToActualStart: stage.ActualStart,
		ToCompletedOn: stage.CompletedOn,
		At:            at,
		Note:          note,
		ByUserID:      userID,
	}
}
