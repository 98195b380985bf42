package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters and histograms for the availability service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	slotComputations *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	cacheEvictions   *prometheus.CounterVec
	invalidations    *prometheus.CounterVec
	directoryLatency *prometheus.HistogramVec
	preAppointments  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		slotComputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicslots",
			Subsystem: "availability",
			Name:      "slot_computations_total",
			Help:      "Slot lists computed, by outcome",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicslots",
			Subsystem: "catalog",
			Name:      "cache_lookups_total",
			Help:      "Catalog cache lookups",
		}, []string{"kind", "result"}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicslots",
			Subsystem: "catalog",
			Name:      "cache_evictions_total",
			Help:      "Entries evicted from the in-memory catalog cache",
		}, []string{"kind"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicslots",
			Subsystem: "catalog",
			Name:      "invalidations_total",
			Help:      "Catalog invalidations, by trigger",
		}, []string{"source"}),
		directoryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicslots",
			Subsystem: "directory",
			Name:      "request_duration_seconds",
			Help:      "Latency of clinic directory calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		preAppointments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicslots",
			Subsystem: "booking",
			Name:      "preappointments_total",
			Help:      "Pre-appointment submissions, by outcome",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotComputations, m.cacheLookups, m.cacheEvictions, m.invalidations, m.directoryLatency, m.preAppointments)
	return m
}

func (m *Metrics) ObserveSlotComputation(result string) {
	if m == nil {
		return
	}
	m.slotComputations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveEviction(kind string) {
	if m == nil {
		return
	}
	m.cacheEvictions.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveInvalidation(source string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveDirectoryCall(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.directoryLatency.WithLabelValues(op, status).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePreAppointment(result string) {
	if m == nil {
		return
	}
	m.preAppointments.WithLabelValues(result).Inc()
}
