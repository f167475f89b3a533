package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine-level counters and gauges, registered on the default registry and
// exposed at /metrics.
var (
	FixesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinhunt_fixes_accepted_total",
		Help: "Location fixes accepted by ingest.",
	})

	FixesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinhunt_fixes_rejected_total",
		Help: "Location fixes rejected by ingest, by reason.",
	}, []string{"reason"})

	CheatFlags = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinhunt_cheat_flags_total",
		Help: "Cheat flags raised, by reason and severity.",
	}, []string{"reason", "severity"})

	TargetEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinhunt_target_events_total",
		Help: "Proximity transitions emitted, by event type.",
	}, []string{"type"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coinhunt_active_sessions",
		Help: "Currently running session workers.",
	})

	Collections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinhunt_collections_total",
		Help: "Successful coin collections.",
	})
)
