package application

import (
	"pagebot-core-console/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciliation metrics
var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagebot_commands_total",
			Help: "Page commands by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagebot_command_duration_seconds",
			Help:    "Duration of page commands including the follow-up refresh.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	registryRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagebot_registry_refresh_total",
			Help: "Config registry refreshes by outcome.",
		},
		[]string{"outcome"},
	)

	registryRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pagebot_registry_records",
		Help: "Config records held by the last good registry snapshot.",
	})

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagebot_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// outcomeLabel maps an error to a low-cardinality metric label
func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
