package subscriber

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_indexer_blocks_processed_total",
			Help: "Total number of blocks processed by class",
		},
		[]string{"class"},
	)

	blockFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_indexer_block_failures_total",
			Help: "Total number of block processing failures by class",
		},
		[]string{"class"},
	)

	blocksSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_indexer_blocks_skipped_total",
			Help: "Total number of blocks skipped after exhausting retries",
		},
		[]string{"class"},
	)

	eventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_indexer_events_processed_total",
			Help: "Total number of marketplace events processed by class and type",
		},
		[]string{"class", "event"},
	)

	currentBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "market_indexer_current_block",
			Help: "Next block each subscriber will process",
		},
		[]string{"class"},
	)
)

func BlockProcessedInc(class string) {
	blocksProcessed.WithLabelValues(class).Inc()
}

func BlockFailureInc(class string) {
	blockFailures.WithLabelValues(class).Inc()
}

func BlockSkippedInc(class string) {
	blocksSkipped.WithLabelValues(class).Inc()
}

func EventProcessedInc(class, event string) {
	eventsProcessed.WithLabelValues(class, event).Inc()
}

func CurrentBlockSet(class string, block uint64) {
	currentBlock.WithLabelValues(class).Set(float64(block))
}
