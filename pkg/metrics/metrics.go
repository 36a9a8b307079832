package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskbook_bookings_total",
			Help: "Per-date booking outcomes",
		},
		[]string{"status"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskbook_runs_total",
			Help: "Booking runs by result",
		},
		[]string{"result"},
	)

	RelaunchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskbook_app_relaunches_total",
			Help: "App relaunches performed to recover from a failed date",
		},
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskbook_step_duration_seconds",
			Help:    "Time spent waiting for and acting on each booking step",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"step"},
	)

	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskbook_tool_calls_total",
			Help: "MCP tool calls by tool and result",
		},
		[]string{"tool", "result"},
	)
)

func init() {
	prometheus.MustRegister(BookingsTotal, RunsTotal, RelaunchesTotal, StepDuration, ToolCallsTotal)
}
