package artifactcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	lookups        *prometheus.CounterVec
	committedBytes prometheus.Counter
	gcDeleted      *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "requests_total",
			Help:      "Number of cache API requests, by route and status code.",
		}, []string{"route", "code"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "lookups_total",
			Help:      "Number of cache lookups, by result.",
		}, []string{"result"}),
		committedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "committed_bytes_total",
			Help:      "Size of all committed archives.",
		}),
		gcDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "gc_deleted_total",
			Help:      "Number of entries removed by garbage collection, by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(m.requests, m.lookups, m.committedBytes, m.gcDeleted)
	return m
}
