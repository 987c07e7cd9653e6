package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)

	// TicketsGenerated counts tickets created by sellers.
	TicketsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "tickets_generated_total",
			Help:      "The total number of tickets generated",
		},
	)

	// TokensIssued counts download tokens minted, initial and regenerated.
	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "download_tokens_issued_total",
			Help:      "The total number of download tokens issued",
		},
	)

	// TokensSwept counts expired tokens marked used by the periodic sweep.
	TokensSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "download_tokens_swept_total",
			Help:      "The total number of stale download tokens cleaned up",
		},
	)

	// ScansTotal counts gate scans by outcome.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "gate_scans_total",
			Help:      "The total number of gate scans by outcome",
		},
		[]string{"outcome"},
	)

	// SharesTotal counts link delivery attempts by channel and result.
	SharesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "link_shares_total",
			Help:      "The total number of ticket link delivery attempts",
		},
		[]string{"method", "success"},
	)
)
