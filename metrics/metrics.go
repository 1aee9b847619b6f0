// Package metrics defines the instrumentation hooks of the genfile router and
// decoration pipeline.
//
// Metrics are optional. Components fall back to a no-op implementation when
// none is configured, so the router runs identically with or without
// collection enabled:
//
//	m, err := prometheus.NewRouterMetrics(registry)
//	if err != nil {
//	    return err
//	}
//	router, err := genfile.NewRouter(providers, genfile.WithMetrics(m))
package metrics

// Aggregation outcomes reported by ObserveAggregation.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
)

// RouterMetrics receives router and pipeline events.
//
// Implementations must be safe for concurrent use.
type RouterMetrics interface {
	// ProviderFailure counts a failed provider call made by the router while
	// aggregating or broadcasting.
	ProviderFailure(op, provider string)

	// ObserveAggregation records how a whole-namespace aggregation ended.
	ObserveAggregation(op, outcome string)

	// ObserveBatch records a finished batch operation.
	ObserveBatch(op string, total, failed int)

	// DecorationFailure counts a contained decorator failure.
	DecorationFailure(hook string)
}

// NewNoopRouterMetrics returns a RouterMetrics that discards everything.
func NewNoopRouterMetrics() RouterMetrics {
	return noopRouterMetrics{}
}

type noopRouterMetrics struct{}

func (noopRouterMetrics) ProviderFailure(string, string)    {}
func (noopRouterMetrics) ObserveAggregation(string, string) {}
func (noopRouterMetrics) ObserveBatch(string, int, int)     {}
func (noopRouterMetrics) DecorationFailure(string)          {}
