package service

import (
	"context"
	"log/slog"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
)

// sagaStep is one forward action with the action that undoes it. compensate
// may be nil for steps with no effect of their own to reverse.
type sagaStep struct {
	name       string
	action     func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// saga runs steps in order. If step k fails, compensations for steps 1..k-1
// run in reverse order and the step's error is returned.
type saga struct {
	name   string
	steps  []sagaStep
	logger *slog.Logger
}

func (s *saga) add(step sagaStep) {
	s.steps = append(s.steps, step)
}

func (s *saga) run(ctx context.Context) ([]domain.SagaStep, error) {
	status := make([]domain.SagaStep, len(s.steps))
	for i, step := range s.steps {
		status[i] = domain.NewSagaStep(step.name)
	}

	for i, step := range s.steps {
		if err := step.action(ctx); err != nil {
			status[i].Fail(err)
			outcome := s.compensate(ctx, status, i)
			SagaOutcomes.WithLabelValues(s.name, outcome).Inc()
			return status, err
		}
		status[i].Complete()
	}

	SagaOutcomes.WithLabelValues(s.name, "committed").Inc()
	return status, nil
}

// compensate undoes steps [0, failed) in reverse. Compensation keeps going
// past individual failures and runs even if the request was cancelled.
func (s *saga) compensate(ctx context.Context, status []domain.SagaStep, failed int) string {
	ctx = context.WithoutCancel(ctx)
	outcome := "compensated"

	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.compensate == nil {
			continue
		}
		if err := step.compensate(ctx); err != nil {
			status[i].CompensationFailed(err)
			outcome = "compensation_failed"
			s.logger.ErrorContext(ctx, "saga compensation failed",
				slog.String("saga", s.name),
				slog.String("step", step.name),
				slog.String("failed_step", s.steps[failed].name),
				slog.String("error", err.Error()),
			)
			continue
		}
		status[i].Compensate()
	}
	return outcome
}
