package util

import "github.com/prometheus/client_golang/prometheus"

// RowCounter tracks rows processed per table and change operation, the
// external "rows synced" metric named in spec.md §6.
type RowCounter struct {
	vec *prometheus.CounterVec
}

// NewRowCounter registers a rows_total counter vec labelled by table
// and operation (create/update/delete) and returns a RowCounter wrapping it.
func NewRowCounter(namespace string) *RowCounter {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_total",
		Help:      "rows processed, by table and operation",
	}, []string{"table", "op"})
	prometheus.MustRegister(vec)
	return &RowCounter{vec: vec}
}

// AddRows increments the counter for table/op by n.
func (r *RowCounter) AddRows(table, op string, n int) {
	r.vec.WithLabelValues(table, op).Add(float64(n))
}

// LagGauge reports the replication lag, in seconds, between a CDC
// adapter's cursor and wall-clock time (spec.md §6 "lag").
type LagGauge struct {
	gauge *prometheus.GaugeVec
}

// NewLagGauge registers a lag_seconds gauge vec labelled by adapter.
func NewLagGauge(namespace string) *LagGauge {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "lag_seconds",
		Help:      "seconds between the adapter's current cursor and now",
	}, []string{"adapter"})
	prometheus.MustRegister(gauge)
	return &LagGauge{gauge: gauge}
}

// Set records the current lag for adapter.
func (l *LagGauge) Set(adapter string, seconds float64) {
	l.gauge.WithLabelValues(adapter).Set(seconds)
}
