package obs

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics holds the adapter's Prometheus collectors for one registry.
// A nil *DomainMetrics records nothing.
type DomainMetrics struct {
	// OperationTotal counts adapter operations by outcome.
	OperationTotal *prometheus.CounterVec
	// FailureTotal counts failures reported to the observability sink.
	FailureTotal *prometheus.CounterVec
	// CallbackTotal counts processed gateway callbacks by result.
	CallbackTotal *prometheus.CounterVec
}

// NewDomainMetrics creates the adapter collectors and registers them with reg.
// Collectors already present in reg are reused, so building twice against the
// same registry shares counters.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		OperationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paysera_operations_total",
			Help:      "Count of Paysera adapter operations by outcome.",
		}, []string{"operation", "result"}),
		FailureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paysera_operation_failures_total",
			Help:      "Count of failed Paysera adapter operations recorded for observability.",
		}, []string{"operation"}),
		CallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paysera_callbacks_total",
			Help:      "Count of processed Paysera callbacks by result.",
		}, []string{"result"}),
	}

	m.OperationTotal = mustRegisterCounterVec(reg, m.OperationTotal)
	m.FailureTotal = mustRegisterCounterVec(reg, m.FailureTotal)
	m.CallbackTotal = mustRegisterCounterVec(reg, m.CallbackTotal)
	return m
}

// Operation increments OperationTotal.
func (m *DomainMetrics) Operation(operation, result string) {
	if m == nil {
		return
	}
	m.OperationTotal.WithLabelValues(operation, result).Inc()
}

// Failure increments FailureTotal.
func (m *DomainMetrics) Failure(operation string) {
	if m == nil {
		return
	}
	m.FailureTotal.WithLabelValues(operation).Inc()
}

// Callback increments CallbackTotal.
func (m *DomainMetrics) Callback(result string) {
	if m == nil {
		return
	}
	m.CallbackTotal.WithLabelValues(result).Inc()
}

func mustRegisterCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
	return vec
}
