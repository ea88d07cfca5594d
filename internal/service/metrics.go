package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SagaOutcomes counts saga runs by outcome: committed, compensated or
	// compensation_failed.
	SagaOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_saga_outcomes_total",
			Help: "Total number of saga runs by outcome",
		},
		[]string{"saga", "outcome"},
	)

	// ReactionToggles counts reaction toggles by kind.
	ReactionToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_reaction_toggles_total",
			Help: "Total number of reaction toggles by kind",
		},
		[]string{"kind"},
	)
)
