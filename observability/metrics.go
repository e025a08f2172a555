// Package observability exposes Prometheus metrics for the globe viewport.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ViewportCollector bundles the viewport's metrics. A nil collector is valid
// and records nothing.
type ViewportCollector struct {
	gatherer prometheus.Gatherer

	Frames          prometheus.Counter
	FrameDurations  prometheus.Histogram
	TimeUpdates     prometheus.Counter
	Sessions        prometheus.Counter
	Picks           *prometheus.CounterVec
	ResizeListeners prometheus.Gauge
}

// NewViewportCollector registers viewport metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewViewportCollector(reg prometheus.Registerer) (*ViewportCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "natalglobe_frames_total",
		Help: "Total number of frames rendered by the viewport.",
	}), "natalglobe_frames_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "natalglobe_frame_duration_seconds",
		Help:    "Frame render time in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1, 0.25, 0.5, 1},
	}), "natalglobe_frame_duration_seconds")
	if err != nil {
		return nil, err
	}
	timeUpdates, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "natalglobe_time_updates_total",
		Help: "Total number of time-of-day changes applied to the sun light.",
	}), "natalglobe_time_updates_total")
	if err != nil {
		return nil, err
	}
	sessions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "natalglobe_sessions_total",
		Help: "Total number of viewport initializations.",
	}), "natalglobe_sessions_total")
	if err != nil {
		return nil, err
	}
	picks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "natalglobe_picks_total",
		Help: "Clicks that hit an overlay, labeled by kind (point, arc, none).",
	}, []string{"kind"}), "natalglobe_picks_total")
	if err != nil {
		return nil, err
	}
	listeners, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "natalglobe_resize_listeners",
		Help: "Resize listeners currently registered by the viewport.",
	}), "natalglobe_resize_listeners")
	if err != nil {
		return nil, err
	}

	return &ViewportCollector{
		gatherer:        gatherer,
		Frames:          frames,
		FrameDurations:  durations,
		TimeUpdates:     timeUpdates,
		Sessions:        sessions,
		Picks:           picks,
		ResizeListeners: listeners,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ViewportCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveFrame records one rendered frame.
func (c *ViewportCollector) ObserveFrame(d time.Duration) {
	if c == nil {
		return
	}
	c.Frames.Inc()
	c.FrameDurations.Observe(d.Seconds())
}

func (c *ViewportCollector) TimeUpdated() {
	if c == nil {
		return
	}
	c.TimeUpdates.Inc()
}

func (c *ViewportCollector) SessionStarted() {
	if c == nil {
		return
	}
	c.Sessions.Inc()
}

// Picked counts a click by what it hit: "point", "arc" or "none".
func (c *ViewportCollector) Picked(kind string) {
	if c == nil {
		return
	}
	c.Picks.WithLabelValues(kind).Inc()
}

func (c *ViewportCollector) SetResizeListeners(n int) {
	if c == nil {
		return
	}
	c.ResizeListeners.Set(float64(n))
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
