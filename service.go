package genfile

import (
	"context"
	"fmt"
	"io"

	"github.com/gobeaver/beaver-kit/config"
	promclient "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gobeaver/genfile/internal/logging"
	"github.com/gobeaver/genfile/metrics/prometheus"
)

// Builder provides a way to create Router instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// New creates a new Router using the builder's prefix
func (b *Builder) New(opts ...RouterOption) (*Router, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// NewFromEnv creates a Router from environment variables (convenience constructor)
func NewFromEnv(opts ...RouterOption) (*Router, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New creates a Router from configuration. Providers are built through the
// registered factories, so the packages providing each kind must be imported,
// e.g. _ "github.com/gobeaver/genfile/provider/afs".
//
// opts are applied after the configured defaults and take precedence.
func New(cfg *Config, opts ...RouterOption) (*Router, error) {
	specs, err := cfg.ProviderSpecs()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	providers := make([]Provider, 0, len(specs))
	for _, spec := range specs {
		provider, err := CreateProvider(spec, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("provider configured",
			zap.String("provider", spec.ID),
			zap.String("kind", spec.Kind),
			zap.Bool("read_only", spec.ReadOnly))
		providers = append(providers, provider)
	}

	// The checksum decorator reads content back through the router itself.
	var router *Router
	content := ContentSourceFunc(func(ctx context.Context, p Path) (io.ReadCloser, error) {
		return router.GetFileContent(ctx, p, false)
	})

	decorator, err := configuredDecorator(cfg, content)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	defaults := []RouterOption{
		WithLogger(logger),
		WithDecorator(decorator),
	}
	if cfg.MetricsEnabled {
		m, err := prometheus.NewRouterMetrics(promclient.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, WithMetrics(m))
	}

	router, err = NewRouter(providers, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	return router, nil
}

// configuredDecorator chains the decorators enabled in cfg.
func configuredDecorator(cfg *Config, content ContentSource) (Decorator, error) {
	var chain []Decorator

	if cfg.DecorateContentType {
		chain = append(chain, NewContentTypeDecorator())
	}
	chain = append(chain, NewTagsDecorator())

	if cfg.ChecksumAlgorithm != "" {
		checksum, err := NewChecksumDecorator(content,
			ChecksumAlgorithm(cfg.ChecksumAlgorithm),
			WithChecksumMaxSize(cfg.ChecksumMaxSize))
		if err != nil {
			return nil, err
		}
		chain = append(chain, checksum)
	}

	return Chain(chain...), nil
}
