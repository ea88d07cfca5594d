package domain

import "time"

// StepStatus is where a saga step ended up.
type StepStatus string

const (
	SagaStepPending            StepStatus = "pending"
	SagaStepCompleted          StepStatus = "completed"
	SagaStepFailed             StepStatus = "failed"
	SagaStepCompensated        StepStatus = "compensated"
	SagaStepCompensationFailed StepStatus = "compensation_failed"
)

// Steps of the review creation saga, in execution order.
const (
	SagaStepCreateReaction   = "create_reaction"
	SagaStepCreateDiscussion = "create_discussion"
	SagaStepCreateReview     = "create_review"
	SagaStepAddGameRatings   = "add_game_ratings"
	SagaStepIncrementUser    = "increment_user_reviews"
	SagaStepLinkRecords      = "link_records"
)

// SagaStep records one step of a saga run.
type SagaStep struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	At     time.Time  `json:"at,omitzero"`
}

// NewSagaStep returns a pending step.
func NewSagaStep(name string) SagaStep {
	return SagaStep{Name: name, Status: SagaStepPending}
}

func (s *SagaStep) mark(status StepStatus, err error) {
	s.Status = status
	s.At = time.Now().UTC()
	if err != nil {
		s.Error = err.Error()
	}
}

// Complete marks the forward action as done.
func (s *SagaStep) Complete() { s.mark(SagaStepCompleted, nil) }

// Fail records the forward action's error.
func (s *SagaStep) Fail(err error) { s.mark(SagaStepFailed, err) }

// Compensate marks the step as undone.
func (s *SagaStep) Compensate() { s.mark(SagaStepCompensated, nil) }

// CompensationFailed records that undoing the step failed; its effect is
// still in place.
func (s *SagaStep) CompensationFailed(err error) { s.mark(SagaStepCompensationFailed, err) }
