// Package prometheus implements metrics.RouterMetrics on top of the
// Prometheus client library.
package prometheus

import (
	"errors"
	"fmt"

	"github.com/gobeaver/genfile/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// routerMetrics is the Prometheus implementation of metrics.RouterMetrics.
type routerMetrics struct {
	providerFailures   *prometheus.CounterVec
	aggregations       *prometheus.CounterVec
	batchOperations    *prometheus.CounterVec
	batchPaths         *prometheus.CounterVec
	batchFailures      *prometheus.CounterVec
	decorationFailures *prometheus.CounterVec
}

// NewRouterMetrics registers the router collectors with reg. Collectors that
// are already registered, e.g. by an earlier router, are reused.
//
// Returns a no-op implementation if reg is nil.
func NewRouterMetrics(reg prometheus.Registerer) (metrics.RouterMetrics, error) {
	if reg == nil {
		return metrics.NewNoopRouterMetrics(), nil
	}

	m := &routerMetrics{
		providerFailures: promauto.With(nil).NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfile_provider_failures_total",
				Help: "Provider calls that failed during aggregation or broadcast",
			},
			[]string{"op", "provider"},
		),
		aggregations: promauto.With(nil).NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfile_aggregations_total",
				Help: "Whole-namespace aggregations by outcome",
			},
			[]string{"op", "outcome"},
		),
		batchOperations: promauto.With(nil).NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfile_batch_operations_total",
				Help: "Batch operations by status",
			},
			[]string{"op", "status"},
		),
		batchPaths: promauto.With(nil).NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfile_batch_paths_total",
				Help: "Paths submitted to batch operations",
			},
			[]string{"op"},
		),
		batchFailures: promauto.With(nil).NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfile_batch_path_failures_total",
				Help: "Paths that failed within batch operations",
			},
			[]string{"op"},
		),
		decorationFailures: promauto.With(nil).NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfile_decoration_failures_total",
				Help: "Contained decorator failures by hook",
			},
			[]string{"hook"},
		),
	}

	vecs := []**prometheus.CounterVec{
		&m.providerFailures,
		&m.aggregations,
		&m.batchOperations,
		&m.batchPaths,
		&m.batchFailures,
		&m.decorationFailures,
	}
	for _, vec := range vecs {
		registered, err := register(reg, *vec)
		if err != nil {
			return nil, err
		}
		*vec = registered
	}
	return m, nil
}

// register adds vec to reg, returning the existing collector when an
// identical one is already registered.
func register(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(vec)
	if err == nil {
		return vec, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("register router metrics: %w", err)
}

func (m *routerMetrics) ProviderFailure(op, provider string) {
	m.providerFailures.WithLabelValues(op, provider).Inc()
}

func (m *routerMetrics) ObserveAggregation(op, outcome string) {
	m.aggregations.WithLabelValues(op, outcome).Inc()
}

func (m *routerMetrics) ObserveBatch(op string, total, failed int) {
	status := "success"
	if failed > 0 {
		status = "error"
	}
	m.batchOperations.WithLabelValues(op, status).Inc()
	m.batchPaths.WithLabelValues(op).Add(float64(total))
	m.batchFailures.WithLabelValues(op).Add(float64(failed))
}

func (m *routerMetrics) DecorationFailure(hook string) {
	m.decorationFailures.WithLabelValues(hook).Inc()
}
