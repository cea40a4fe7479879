// Package prom counts entrycache hook events with Prometheus collectors.
// Keys are never used as label values.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/entrycache"
	"github.com/unkn0wn-root/entrycache/codec"
)

type Hooks struct {
	hits            prometheus.Counter
	misses          *prometheus.CounterVec
	decodeFallbacks *prometheus.CounterVec
	flushFailures   prometheus.Counter
	flushLostBytes  prometheus.Counter
}

var _ entrycache.Hooks = (*Hooks)(nil)

// New creates the collectors under namespace (e.g. "myapp") and registers
// them with reg. A nil reg skips registration.
func New(namespace string, reg prometheus.Registerer) (*Hooks, error) {
	h := &Hooks{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entrycache",
			Name:      "hits_total",
			Help:      "Reads that returned a live value",
		}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entrycache",
			Name:      "misses_total",
			Help:      "Reads that found nothing usable, by reason",
		}, []string{"reason"}),
		decodeFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entrycache",
			Name:      "decode_fallbacks_total",
			Help:      "Payloads the structured codec rejected, by outcome",
		}, []string{"outcome"}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entrycache",
			Name:      "flush_failures_total",
			Help:      "Pending values that could not be written",
		}),
		flushLostBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entrycache",
			Name:      "flush_failed_bytes_total",
			Help:      "Payload bytes of pending values that could not be written",
		}),
	}
	if reg == nil {
		return h, nil
	}
	for _, c := range []prometheus.Collector{h.hits, h.misses, h.decodeFallbacks, h.flushFailures, h.flushLostBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) Hit(string)                   { h.hits.Inc() }
func (h *Hooks) Miss(_ string, reason string) { h.misses.WithLabelValues(reason).Inc() }
func (h *Hooks) DecodeFallback(_ string, d codec.Decoded, _ error) {
	h.decodeFallbacks.WithLabelValues(d.String()).Inc()
}
func (h *Hooks) FlushFailed(_ string, payload []byte, _ time.Time, _ error) {
	h.flushFailures.Inc()
	h.flushLostBytes.Add(float64(len(payload)))
}
