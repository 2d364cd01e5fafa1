package runtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record outcomes reported in Metrics.
const (
	OutcomePassed  = "passed"
	OutcomeDropped = "dropped"
	OutcomeFailed  = "failed"
)

// Metrics holds the Prometheus instruments shared by a chain's commands.
type Metrics struct {
	// Records counts the result returned by each command, downstream included
	Records *prometheus.CounterVec
	// ChainDuration observes the time spent in Chain.Process
	ChainDuration *prometheus.HistogramVec
	// Notifications counts broadcast notifications by kind
	Notifications *prometheus.CounterVec
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conduit",
				Subsystem: "command",
				Name:      "records_total",
				Help:      "Total number of records seen by a command, by outcome",
			},
			[]string{"pipeline", "command", "outcome"},
		),

		ChainDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "conduit",
				Subsystem: "chain",
				Name:      "process_seconds",
				Help:      "Time spent pushing one record through a chain",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"pipeline"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conduit",
				Subsystem: "context",
				Name:      "notifications_total",
				Help:      "Total number of notifications broadcast, by kind",
			},
			[]string{"kind"},
		),
	}
}

// recordOutcome counts one Process result for a command.
func (m *Metrics) recordOutcome(pipeline, command string, ok bool, err error) {
	outcome := OutcomePassed
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case !ok:
		outcome = OutcomeDropped
	}
	m.Records.WithLabelValues(pipeline, command, outcome).Inc()
}

func (m *Metrics) observeChain(pipeline string, d time.Duration) {
	m.ChainDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (m *Metrics) countNotification(kind NotificationKind) {
	m.Notifications.WithLabelValues(kind.String()).Inc()
}
