package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fastplan",
			Subsystem: "runner",
			Name:      "frames_total",
			Help:      "Plan units processed, by unit kind and outcome.",
		},
		[]string{"transport", "kind", "result"},
	)
	frameBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fastplan",
			Subsystem: "runner",
			Name:      "frame_bytes",
			Help:      "Size of frames handed to the sink.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10),
		},
		[]string{"transport", "kind"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fastplan",
			Subsystem: "runner",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one plan run.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"transport"},
	)
)

// Frame outcome labels.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTotal, frameBytes, runDuration)
	})
}

// RecordFrame counts one unit. size is observed only for sent frames.
func RecordFrame(transport, kind string, size int, sent bool) {
	RegisterMetrics()
	result := ResultFailed
	if sent {
		result = ResultSent
		frameBytes.WithLabelValues(transport, kind).Observe(float64(size))
	}
	framesTotal.WithLabelValues(transport, kind, result).Inc()
}

func RecordRun(transport string, duration time.Duration) {
	RegisterMetrics()
	runDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

// WriteTextfile dumps the default registry in the text exposition format,
// suitable for a node_exporter textfile collector.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
