// Package metrics holds the relay's Prometheus collectors behind a non-global registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream connector states as exported on the state gauge.
var upstreamStates = []string{"disconnected", "connecting", "connected"}

// Registry encapsulates all metrics and provides a clean interface
// for recording them without global state.
type Registry struct {
	registry *prometheus.Registry

	// Buffer
	packetsPushed  *prometheus.CounterVec
	packetsEvicted prometheus.Counter

	// Fanout
	broadcasts         prometheus.Counter
	deliveriesSent     prometheus.Counter
	deliveriesSkipped  prometheus.Counter
	subscribersActive  prometheus.Gauge
	replayedPackets    prometheus.Counter
	duplicatesFiltered prometheus.Counter

	// Upstream
	upstreamState   *prometheus.GaugeVec
	connectAttempts *prometheus.CounterVec
	backfillTotal   *prometheus.CounterVec
	backfillPackets prometheus.Counter

	// Mirror
	mirrorPublish *prometheus.CounterVec
}

// NewRegistry creates a registry with all relay collectors plus the Go and
// process collectors.
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		packetsPushed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_relay_packets_pushed_total",
				Help: "Packets pushed into the buffer",
			},
			[]string{"event"},
		),
		packetsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_relay_packets_evicted_total",
			Help: "Packets evicted from the buffer tail",
		}),

		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_relay_broadcasts_total",
			Help: "Packets fanned out to subscribers",
		}),
		deliveriesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_relay_deliveries_sent_total",
			Help: "Packets enqueued to subscriber mailboxes by broadcast",
		}),
		deliveriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_relay_deliveries_skipped_total",
			Help: "Broadcast deliveries skipped because the subscriber was closed or saturated",
		}),
		subscribersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feed_relay_subscribers",
			Help: "Currently attached subscribers",
		}),
		replayedPackets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_relay_replayed_packets_total",
			Help: "Packets delivered to joining subscribers by replay",
		}),
		duplicatesFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_relay_duplicates_filtered_total",
			Help: "Upstream items dropped because they were already forwarded",
		}),

		upstreamState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "feed_relay_upstream_state",
				Help: "Upstream connector state (1 for the current state)",
			},
			[]string{"state"},
		),
		connectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_relay_upstream_connect_attempts_total",
				Help: "Upstream connect attempts",
			},
			[]string{"status"}, // status: success, error
		),
		backfillTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_relay_backfill_total",
				Help: "Backfill runs",
			},
			[]string{"status"}, // status: success, error
		),
		backfillPackets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_relay_backfill_packets_total",
			Help: "Packets seeded into the buffer by backfill",
		}),

		mirrorPublish: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_relay_mirror_publish_total",
				Help: "Packets mirrored to the message bus",
			},
			[]string{"status"}, // status: success, error, dropped
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.packetsPushed,
		r.packetsEvicted,
		r.broadcasts,
		r.deliveriesSent,
		r.deliveriesSkipped,
		r.subscribersActive,
		r.replayedPackets,
		r.duplicatesFiltered,
		r.upstreamState,
		r.connectAttempts,
		r.backfillTotal,
		r.backfillPackets,
		r.mirrorPublish,
	)

	return r
}

func (r *Registry) PacketPushed(event string) { r.packetsPushed.WithLabelValues(event).Inc() }
func (r *Registry) PacketEvicted()            { r.packetsEvicted.Inc() }
func (r *Registry) DuplicateFiltered()        { r.duplicatesFiltered.Inc() }
func (r *Registry) SetSubscribers(n int)      { r.subscribersActive.Set(float64(n)) }
func (r *Registry) Replayed(n int)            { r.replayedPackets.Add(float64(n)) }

// Broadcast records one fanout and its per-subscriber outcome.
func (r *Registry) Broadcast(sent, skipped int) {
	r.broadcasts.Inc()
	r.deliveriesSent.Add(float64(sent))
	r.deliveriesSkipped.Add(float64(skipped))
}

// UpstreamState marks state as current and clears the others.
func (r *Registry) UpstreamState(state string) {
	for _, s := range upstreamStates {
		v := 0.0
		if s == state {
			v = 1
		}
		r.upstreamState.WithLabelValues(s).Set(v)
	}
}

func (r *Registry) ConnectAttempt(err error) {
	r.connectAttempts.WithLabelValues(status(err)).Inc()
}

func (r *Registry) Backfill(pushed int, err error) {
	r.backfillTotal.WithLabelValues(status(err)).Inc()
	r.backfillPackets.Add(float64(pushed))
}

func (r *Registry) MirrorPublish(status string) {
	r.mirrorPublish.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// Info publishes build information as a constant gauge.
func (r *Registry) Info(version string, capacity int) {
	info := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "feed_relay_info",
		Help:        "Build and buffer information (value is always 1)",
		ConstLabels: prometheus.Labels{"version": version, "capacity": strconv.Itoa(capacity)},
	}, func() float64 { return 1 })
	_ = r.registry.Register(info)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
