// Package metrics exposes the controller's gauges to Prometheus. Values are
// pulled from a Source at scrape time; nothing here is pushed by the loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "queuescaler"

// Source is sampled on every scrape.
type Source interface {
	CurrentQueueDepth() float64
	CurrentReplicaCount() float64
	CurrentThroughput() float64
}

// Collectors returns the three gauges bound to src.
func Collectors(src Source) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_message_count",
			Help:      "The current number of messages waiting in the monitored queue.",
		}, src.CurrentQueueDepth),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deployment_replica_count",
			Help:      "The current number of replicas of the managed deployment.",
		}, src.CurrentReplicaCount),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_message_throughput_per_minute",
			Help:      "Rate of change of the queue backlog, in messages per minute.",
		}, src.CurrentThroughput),
	}
}

// Register adds the gauges for src to reg.
func Register(reg prometheus.Registerer, src Source) error {
	for _, c := range Collectors(src) {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
