// Package metrics exposes the control loop's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pinchvol"

// Metrics holds the loop collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	Frames         prometheus.Counter
	FrameFailures  prometheus.Counter
	HandsDetected  prometheus.Counter
	DetectErrors   prometheus.Counter
	MotionSkipped  prometheus.Counter
	VolumeLevel    prometheus.Gauge
	VolumeErrors   prometheus.Counter
	FPS            prometheus.Gauge
	DetectDuration prometheus.Histogram
}

// New registers all collectors, plus the Go runtime and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_total",
			Help: "Frames read from the camera.",
		}),
		FrameFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frame_failures_total",
			Help: "Failed frame reads.",
		}),
		HandsDetected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "hands_detected_total",
			Help: "Frames in which a hand was found.",
		}),
		DetectErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "detect_errors_total",
			Help: "Hand detector failures.",
		}),
		MotionSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "motion_skipped_total",
			Help: "Frames skipped by the motion gate.",
		}),
		VolumeLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "volume_level",
			Help: "Last volume level sent to the backend.",
		}),
		VolumeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "volume_errors_total",
			Help: "Volume backend failures.",
		}),
		FPS: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fps",
			Help: "Loop rate shown in the overlay.",
		}),
		DetectDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "detect_duration_seconds",
			Help:    "Hand detection latency.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 8),
		}),
	}
}

// ObserveDetect records a detection that started at start.
func (m *Metrics) ObserveDetect(start time.Time) {
	m.DetectDuration.Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
