// Package metrics defines and registers all custom Prometheus metrics for the
// ClubConnect session service. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clubconnect"

// ── Reconciliation metrics ───────────────────────────────────────────────────

// ReconciliationsTotal counts applied reconciliations.
// Label:
//   - outcome: "signed_in", "signed_out", "error" or "stale" (discarded result)
var ReconciliationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliations_total",
		Help:      "Total number of session reconciliations, by outcome.",
	},
	[]string{"outcome"},
)

// ReconcileDuration measures profile resolution time for one session event.
var ReconcileDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of profile resolution for a session event.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// NavigationsTotal counts navigation targets emitted.
// Label:
//   - target: "/login", "/rolechooser" or "/dashboard"
var NavigationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "navigations_total",
		Help:      "Total number of navigation decisions emitted, by target.",
	},
	[]string{"target"},
)

// ── Profile metrics ──────────────────────────────────────────────────────────

// ProfileCreationsTotal counts lazy profile creations.
// Label:
//   - result: "created", "exists" (row already there or duplicate race) or "error"
var ProfileCreationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_creations_total",
		Help:      "Total number of default profile creation attempts, by result.",
	},
	[]string{"result"},
)

// RoleAssignmentsTotal counts role chooser writes by chosen role.
var RoleAssignmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_assignments_total",
		Help:      "Total number of roles assigned through the role chooser.",
	},
	[]string{"role"},
)

// ActiveDevices tracks devices with a live synchronizer.
var ActiveDevices = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_devices",
		Help:      "Current number of devices with a running synchronizer.",
	},
)
