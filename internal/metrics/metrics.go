// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fairylights",
		Subsystem: "engine",
		Name:      "frames_total",
		Help:      "Frames rendered and flushed",
	})

	flushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fairylights",
		Subsystem: "engine",
		Name:      "flush_errors_total",
		Help:      "Frames whose hardware flush failed",
	})

	frameSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fairylights",
		Subsystem: "engine",
		Name:      "frame_seconds",
		Help:      "Time spent updating and flushing one frame",
		Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
	})

	patternInstalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fairylights",
		Subsystem: "pattern",
		Name:      "installs_total",
		Help:      "Patterns installed, by kind",
	}, []string{"kind"})

	patternRejects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fairylights",
		Subsystem: "pattern",
		Name:      "rejected_total",
		Help:      "Pattern specs rejected at construction",
	})

	channelLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fairylights",
		Subsystem: "channel",
		Name:      "level",
		Help:      "Last flushed drive level per channel and rail",
	}, []string{"channel", "rail"})
)

// Frame records one rendered frame.
func Frame(d time.Duration, err error) {
	framesTotal.Inc()
	frameSeconds.Observe(d.Seconds())
	if err != nil {
		flushErrors.Inc()
	}
}

// PatternInstalled counts a pattern becoming active.
func PatternInstalled(kind string) {
	patternInstalls.WithLabelValues(kind).Inc()
}

// PatternRejected counts a spec that failed validation.
func PatternRejected() {
	patternRejects.Inc()
}

// SetChannelLevel records the level each rail of a channel was driven to.
func SetChannelLevel(ch, rail string, level float64) {
	channelLevel.WithLabelValues(ch, rail).Set(level)
}

// Handler serves every registered collector.
func Handler() http.Handler {
	return promhttp.Handler()
}
