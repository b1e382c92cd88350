/*
file: redis-emulator/metrics.go

Backs the teacher's GeneralStats counters with real prometheus metrics,
the metrics library the pack shows for a Redis-adjacent Go service
(canonical-redis_exporter/exporter/exporter.go).
*/
package redisemu

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the set of counters/gauges a Server exposes. Callers that
// want to scrape them can register Metrics.Registry with their own
// prometheus HTTP handler, or call Metrics.Snapshot for INFO.
type Metrics struct {
	Registry *prometheus.Registry

	CommandsProcessed prometheus.Counter
	ConnectedClients  prometheus.Gauge
	ExpiredKeys       prometheus.Counter
	EvictedKeys       prometheus.Counter
	BlockedClients    prometheus.Gauge
	PubsubMessages    prometheus.Counter
	TxnsExecuted      prometheus.Counter
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redisemu_commands_processed_total",
			Help: "Total commands dispatched.",
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redisemu_connected_clients",
			Help: "Currently connected clients.",
		}),
		ExpiredKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redisemu_expired_keys_total",
			Help: "Keys removed by lazy or active expiry.",
		}),
		EvictedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redisemu_evicted_keys_total",
			Help: "Keys removed by the eviction policy.",
		}),
		BlockedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redisemu_blocked_clients",
			Help: "Clients currently suspended in a blocking command.",
		}),
		PubsubMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redisemu_pubsub_messages_total",
			Help: "Pub/sub messages delivered to subscribers.",
		}),
		TxnsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redisemu_transactions_executed_total",
			Help: "MULTI/EXEC transactions committed.",
		}),
	}
	reg.MustRegister(m.CommandsProcessed, m.ConnectedClients, m.ExpiredKeys,
		m.EvictedKeys, m.BlockedClients, m.PubsubMessages, m.TxnsExecuted)
	return m
}

// MetricsSnapshot is a point-in-time read of the counters, handy for
// INFO's stats section without pulling in the full prometheus text
// exposition format.
type MetricsSnapshot struct {
	CommandsProcessed float64
	ConnectedClients  float64
	ExpiredKeys       float64
	EvictedKeys       float64
	BlockedClients    float64
	PubsubMessages    float64
	TxnsExecuted      float64
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	_ = g.Write(&m)
	return m.GetGauge().GetValue()
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	_ = c.Write(&m)
	return m.GetCounter().GetValue()
}

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		CommandsProcessed: counterValue(m.CommandsProcessed),
		ConnectedClients:  gaugeValue(m.ConnectedClients),
		ExpiredKeys:       counterValue(m.ExpiredKeys),
		EvictedKeys:       counterValue(m.EvictedKeys),
		BlockedClients:    gaugeValue(m.BlockedClients),
		PubsubMessages:    counterValue(m.PubsubMessages),
		TxnsExecuted:      counterValue(m.TxnsExecuted),
	}
}
