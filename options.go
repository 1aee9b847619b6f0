package genfile

import (
	"go.uber.org/zap"

	"github.com/gobeaver/genfile/metrics"
)

// RouterOption represents a configuration option for NewRouter
type RouterOption func(*RouterOptions)

// RouterOptions contains all possible options for a Router
type RouterOptions struct {
	// Decorator post-processes every file, tree and metadata map returned
	// by a provider. Default: NopDecorator
	Decorator Decorator

	// Logger receives provider and decoration failures. Default: no-op
	Logger *zap.Logger

	// Metrics receives router events. Default: no-op
	Metrics metrics.RouterMetrics
}

func defaultRouterOptions() RouterOptions {
	return RouterOptions{
		Decorator: NopDecorator{},
		Logger:    zap.NewNop(),
		Metrics:   metrics.NewNoopRouterMetrics(),
	}
}

// WithDecorator sets the decorator run by the pipeline
func WithDecorator(d Decorator) RouterOption {
	return func(o *RouterOptions) {
		if d != nil {
			o.Decorator = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) RouterOption {
	return func(o *RouterOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m metrics.RouterMetrics) RouterOption {
	return func(o *RouterOptions) {
		if m != nil {
			o.Metrics = m
		}
	}
}
