package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/speedgrapplers/gameserver/logger"
)

type Metrics struct {
	OnlineSessions      prometheus.Gauge
	ActiveRooms         prometheus.Gauge
	InputsReceived      prometheus.Counter
	InputsDroppedStale  prometheus.Counter
	InputsDroppedBadFmt prometheus.Counter
	InputsForwarded     prometheus.Counter
	SnapshotsRelayed    prometheus.Counter
	BroadcastLatency    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of connected websocket sessions",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		InputsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_received_total",
			Help:      "Controller input samples received",
		}),
		InputsDroppedStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_dropped_stale_total",
			Help:      "Input samples dropped by the monotonic timestamp gate",
		}),
		InputsDroppedBadFmt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_dropped_invalid_total",
			Help:      "Input samples dropped by shape/range validation",
		}),
		InputsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_forwarded_total",
			Help:      "Input samples forwarded to display hosts",
		}),
		SnapshotsRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_relayed_total",
			Help:      "World snapshots relayed from displays to rooms",
		}),
		BroadcastLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_latency_seconds",
			Help:      "Roster broadcast fanout latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	prometheus.MustRegister(
		m.OnlineSessions,
		m.ActiveRooms,
		m.InputsReceived,
		m.InputsDroppedStale,
		m.InputsDroppedBadFmt,
		m.InputsForwarded,
		m.SnapshotsRelayed,
		m.BroadcastLatency,
	)
	return m
}

// Monitor exposes prometheus metrics and a couple of expvar basics. It
// implements room.Metrics.
type Monitor struct {
	metrics   *Metrics
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime_seconds", expvar.Func(func() any {
		return time.Since(m.startTime).Seconds()
	}))
	mux.Handle("/debug/vars", expvar.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Log.Errorf("metrics server: %v", err)
		}
	}()
}

func (m *Monitor) IncOnlineSessions()       { m.metrics.OnlineSessions.Inc() }
func (m *Monitor) DecOnlineSessions()       { m.metrics.OnlineSessions.Dec() }
func (m *Monitor) SetActiveRooms(n int)     { m.metrics.ActiveRooms.Set(float64(n)) }
func (m *Monitor) IncInputsReceived()       { m.metrics.InputsReceived.Inc() }
func (m *Monitor) IncInputsDroppedStale()   { m.metrics.InputsDroppedStale.Inc() }
func (m *Monitor) IncInputsDroppedInvalid() { m.metrics.InputsDroppedBadFmt.Inc() }
func (m *Monitor) IncInputsForwarded()      { m.metrics.InputsForwarded.Inc() }
func (m *Monitor) IncSnapshotsRelayed()     { m.metrics.SnapshotsRelayed.Inc() }

func (m *Monitor) ObserveBroadcast(d time.Duration) {
	m.metrics.BroadcastLatency.Observe(d.Seconds())
}
