package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus counters of a Cache.
type Metrics struct {
	// Fetches counts documents read through a resolver, labelled by outcome (success, failure).
	Fetches *prometheus.CounterVec
	// Hits counts lookups answered from the cache without waiting.
	Hits prometheus.Counter
	// Coalesced counts lookups that waited on a fetch started by another caller.
	Coalesced prometheus.Counter
	// Documents is the number of entries held by the cache.
	Documents prometheus.Gauge
}

// NewMetrics creates the cache metrics and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openapi_deref",
			Subsystem: "retrieval",
			Name:      "fetches_total",
			Help:      "Total number of documents read through a resolver",
		}, []string{"outcome"}),
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "openapi_deref",
			Subsystem: "retrieval",
			Name:      "cache_hits_total",
			Help:      "Total number of lookups answered from the cache",
		}),
		Coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "openapi_deref",
			Subsystem: "retrieval",
			Name:      "coalesced_total",
			Help:      "Total number of lookups that shared an in-flight fetch",
		}),
		Documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "openapi_deref",
			Subsystem: "retrieval",
			Name:      "documents",
			Help:      "Number of documents currently cached",
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.Fetches, m.Hits, m.Coalesced, m.Documents} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) recordFetch(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Fetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordHit() {
	if m == nil {
		return
	}
	m.Hits.Inc()
}

func (m *Metrics) recordCoalesced() {
	if m == nil {
		return
	}
	m.Coalesced.Inc()
}

func (m *Metrics) setDocuments(n int) {
	if m == nil {
		return
	}
	m.Documents.Set(float64(n))
}
