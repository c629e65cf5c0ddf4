// Package metrics exposes event bus and packet counters to prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/amirasaad/awgen/pkg/eventbus"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "awgen"

// Recorder implements eventbus.Recorder and counts packets seen by the host.
type Recorder struct {
	emits    *prometheus.CounterVec
	failures *prometheus.CounterVec
	handlers *prometheus.HistogramVec
	duration *prometheus.HistogramVec
	packets  *prometheus.CounterVec
}

var _ eventbus.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		emits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "emits_total",
			Help:      "Number of emissions per event key.",
		}, []string{"key"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "handler_failures_total",
			Help:      "Number of emissions stopped by a failing handler.",
		}, []string{"key", "reason"}),
		handlers: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "handlers",
			Help:      "Handlers registered for a key when it was emitted.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}, []string{"key"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "emit_duration_seconds",
			Help:      "Time spent running the handlers of one emission.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"key"}),
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "packets_total",
			Help:      "Packets exchanged with the script runtime.",
		}, []string{"direction", "type"}),
	}
	for _, c := range []prometheus.Collector{r.emits, r.failures, r.handlers, r.duration, r.packets} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveEmit records one finished emission.
func (r *Recorder) ObserveEmit(key eventbus.Key, handlers int, d time.Duration, err error) {
	k := key.String()
	r.emits.WithLabelValues(k).Inc()
	r.handlers.WithLabelValues(k).Observe(float64(handlers))
	r.duration.WithLabelValues(k).Observe(d.Seconds())
	if err == nil {
		return
	}
	reason := "error"
	if errors.Is(err, eventbus.ErrHandlerPanic) {
		reason = "panic"
	}
	r.failures.WithLabelValues(k, reason).Inc()
}

// ObservePacket counts a packet. direction is "in" for packets from the
// script runtime and "out" for packets sent to it.
func (r *Recorder) ObservePacket(direction, packetType string) {
	r.packets.WithLabelValues(direction, packetType).Inc()
}
