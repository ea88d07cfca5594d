package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
)

func recordingStep(name string, trace *[]string, fail error) sagaStep {
	return sagaStep{
		name: name,
		action: func(context.Context) error {
			*trace = append(*trace, "do:"+name)
			return fail
		},
		compensate: func(context.Context) error {
			*trace = append(*trace, "undo:"+name)
			return nil
		},
	}
}

func TestSaga_CommitsAllSteps(t *testing.T) {
	var trace []string
	before := testutil.ToFloat64(SagaOutcomes.WithLabelValues("test_commit", "committed"))
	sg := &saga{name: "test_commit", logger: slog.New(slog.DiscardHandler)}
	sg.add(recordingStep("a", &trace, nil))
	sg.add(recordingStep("b", &trace, nil))

	status, err := sg.run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"do:a", "do:b"}, trace)
	for _, s := range status {
		assert.Equal(t, domain.SagaStepCompleted, s.Status)
	}
	assert.Equal(t, before+1, testutil.ToFloat64(SagaOutcomes.WithLabelValues("test_commit", "committed")))
}

func TestSaga_CompensatesInReverseOrder(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	before := testutil.ToFloat64(SagaOutcomes.WithLabelValues("test_reverse", "compensated"))
	sg := &saga{name: "test_reverse", logger: slog.New(slog.DiscardHandler)}
	sg.add(recordingStep("a", &trace, nil))
	sg.add(recordingStep("b", &trace, nil))
	sg.add(recordingStep("c", &trace, boom))
	sg.add(recordingStep("d", &trace, nil))

	status, err := sg.run(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"do:a", "do:b", "do:c", "undo:b", "undo:a"}, trace)
	assert.Equal(t, domain.SagaStepCompensated, status[0].Status)
	assert.Equal(t, domain.SagaStepCompensated, status[1].Status)
	assert.Equal(t, domain.SagaStepFailed, status[2].Status)
	assert.Equal(t, "boom", status[2].Error)
	assert.Equal(t, domain.SagaStepPending, status[3].Status)
	assert.Equal(t, before+1, testutil.ToFloat64(SagaOutcomes.WithLabelValues("test_reverse", "compensated")))
}

func TestSaga_CompensationRunsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var undone bool

	sg := &saga{name: "test_cancel", logger: slog.New(slog.DiscardHandler)}
	sg.add(sagaStep{
		name:   "a",
		action: func(context.Context) error { return nil },
		compensate: func(ctx context.Context) error {
			undone = ctx.Err() == nil
			return nil
		},
	})
	sg.add(sagaStep{
		name: "b",
		action: func(context.Context) error {
			cancel()
			return context.Canceled
		},
	})

	_, err := sg.run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, undone)
}

func TestSaga_CompensationFailureContinues(t *testing.T) {
	logs := &syncBuffer{}
	var trace []string
	before := testutil.ToFloat64(SagaOutcomes.WithLabelValues("test_comp_fail", "compensation_failed"))
	sg := &saga{name: "test_comp_fail", logger: slog.New(slog.NewJSONHandler(logs, nil))}
	sg.add(recordingStep("a", &trace, nil))
	sg.add(sagaStep{
		name:       "b",
		action:     func(context.Context) error { return nil },
		compensate: func(context.Context) error { return errors.New("undo failed") },
	})
	sg.add(recordingStep("c", &trace, errors.New("boom")))

	status, err := sg.run(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"do:a", "do:c", "undo:a"}, trace)
	assert.Equal(t, domain.SagaStepCompensationFailed, status[1].Status)
	assert.Equal(t, "undo failed", status[1].Error)
	assert.Contains(t, logs.String(), "saga compensation failed")
	assert.Contains(t, logs.String(), `"step":"b"`)
	assert.Equal(t, before+1, testutil.ToFloat64(SagaOutcomes.WithLabelValues("test_comp_fail", "compensation_failed")))
}
