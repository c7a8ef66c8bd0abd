package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcome labels.
const (
	StatusProcessed = "processed"
	StatusIdle      = "idle"
	StatusFailed    = "failed"
)

// Extraction metrics
var (
	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extractor_cycles_total",
		Help: "Extraction cycles by protocol version and outcome",
	}, []string{"protocol_version", "status"})

	EventsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extractor_events_extracted_total",
		Help: "The total number of events persisted",
	}, []string{"protocol_version"})

	LastProcessedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "extractor_last_processed_block",
		Help: "The last block checkpointed for a protocol version",
	}, []string{"protocol_version"})

	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "extractor_cycle_duration_seconds",
		Help:    "Duration of one extraction cycle",
		Buckets: prometheus.DefBuckets,
	}, []string{"protocol_version"})
)

// Chain metrics
var ChainHead = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "extractor_chain_head",
	Help: "The latest block number reported by the chain",
})

// Scheduler metrics
var (
	Passes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extractor_passes_total",
		Help: "The number of passes over all protocol versions",
	})

	PollInterval = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "extractor_poll_interval_seconds",
		Help: "The wait before the next pass",
	})
)

// Version formats a protocol version as a label value.
func Version(v int) string {
	return strconv.Itoa(v)
}
