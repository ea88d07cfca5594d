package keylock

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WaitDuration observes how long callers waited before acquiring a key.
	WaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keylock_wait_seconds",
			Help:    "Time spent waiting to acquire a keyed lock",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"scope"},
	)

	// HeldKeys tracks the number of keys with at least one holder or waiter.
	HeldKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keylock_held_keys",
			Help: "Number of keys currently held or waited on",
		},
	)

	// Timeouts counts acquisitions abandoned because the context ended first.
	Timeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keylock_timeouts_total",
			Help: "Total number of keyed lock acquisitions that timed out or were cancelled",
		},
		[]string{"scope"},
	)
)

// scopeOf returns the key namespace ("game" for "game:42") so metric
// cardinality stays bounded by the number of aggregate kinds.
func scopeOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
