// Package metrics exposes the lazily-initialised Prometheus registries
// every governance engine records request/latency/error counters
// through.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics is the per-engine counter/histogram set: total calls,
// errors by taxonomy tag, and call latency.
type EngineMetrics struct {
	Calls   *prometheus.CounterVec
	Errors  *prometheus.CounterVec
	Latency *prometheus.HistogramVec
}

var (
	registryOnce sync.Once
	registries   map[string]*EngineMetrics
	registryMu   sync.Mutex
)

// ForEngine returns the lazily-constructed metrics registry for the
// named engine ("votingbody", "congress.house_of_merit", "elections",
// "nominations"), constructing and registering it with the default
// Prometheus registry on first use.
func ForEngine(engine string) *EngineMetrics {
	registryOnce.Do(func() {
		registries = make(map[string]*EngineMetrics)
	})

	registryMu.Lock()
	defer registryMu.Unlock()
	if m, ok := registries[engine]; ok {
		return m
	}

	m := &EngineMetrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "govchain",
			Subsystem:   "engine",
			Name:        "calls_total",
			Help:        "Total mutating calls handled by a governance engine.",
			ConstLabels: prometheus.Labels{"engine": engine},
		}, []string{"method"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "govchain",
			Subsystem:   "engine",
			Name:        "errors_total",
			Help:        "Total errors returned by a governance engine, keyed by taxonomy tag.",
			ConstLabels: prometheus.Labels{"engine": engine},
		}, []string{"method", "tag"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "govchain",
			Subsystem:   "engine",
			Name:        "call_duration_seconds",
			Help:        "Latency distribution for governance engine calls.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"engine": engine},
		}, []string{"method"}),
	}
	prometheus.MustRegister(m.Calls, m.Errors, m.Latency)
	registries[engine] = m
	return m
}

// Observe records one call's outcome and latency. tag is the
// taxonomy.TaggedError.Tag() value, or "" on success.
func (m *EngineMetrics) Observe(method string, start time.Time, tag string) {
	m.Calls.WithLabelValues(method).Inc()
	m.Latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if tag != "" {
		m.Errors.WithLabelValues(method, tag).Inc()
	}
}
