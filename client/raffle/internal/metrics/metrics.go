package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess      = "success"
	OutcomeNotFound     = "not_found"
	OutcomeProgramError = "program_error"
	OutcomeError        = "error"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "raffle_cli_build_info",
		Help: "Build information of the raffle CLI",
	}, []string{"version", "commit", "date"})

	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "raffle_cli_operations_total", Help: "Operations run by the CLI, by outcome.",
	}, []string{"operation", "outcome"})
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "raffle_cli_operation_duration_seconds",
		Help:    "Wall time of CLI operations including confirmation.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"operation"})
	LastOperationTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "raffle_cli_last_operation_timestamp_seconds", Help: "Unix time the operation last finished.",
	}, []string{"operation", "outcome"})
)

func ObserveOperation(operation, outcome string, elapsed time.Duration) {
	Operations.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	LastOperationTimestamp.WithLabelValues(operation, outcome).SetToCurrentTime()
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
