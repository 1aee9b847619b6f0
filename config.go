package genfile

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobeaver/beaver-kit/config"
)

// DefaultProviders is used when no provider is configured.
const DefaultProviders = "files:local:./storage"

type Config struct {
	// Providers lists the backends to mount, comma-separated, in
	// registration order. Each entry is "id:kind" or "id:kind:root"; the
	// provider serves the "/<id>" subtree.
	//
	//	GENFILE_PROVIDERS="docs:local:/srv/docs,scratch:memory"
	//
	// Empty means DefaultProviders.
	Providers string `env:"GENFILE_PROVIDERS"`

	// ReadOnlyProviders lists provider ids wrapped in a ReadOnlyProvider.
	ReadOnlyProviders string `env:"GENFILE_READ_ONLY_PROVIDERS"`

	// Actor is recorded as owner, creator and deleter by providers that do
	// not know the calling user.
	Actor string `env:"GENFILE_ACTOR,default:system"`

	// TreeCacheTTLSeconds bounds how long providers keep cached trees.
	// 0 keeps them until the next write or ClearTreeCache.
	TreeCacheTTLSeconds int `env:"GENFILE_TREE_CACHE_TTL_SECONDS,default:300"`

	// Logging
	LogLevel  string `env:"GENFILE_LOG_LEVEL,default:info"`
	LogFormat string `env:"GENFILE_LOG_FORMAT,default:json"`
	LogOutput string `env:"GENFILE_LOG_OUTPUT,default:stderr"`

	// MetricsEnabled registers router metrics with the default Prometheus
	// registerer.
	MetricsEnabled bool `env:"GENFILE_METRICS_ENABLED,default:false"`

	// Decoration
	DecorateContentType bool   `env:"GENFILE_DECORATE_CONTENT_TYPE,default:true"`
	ChecksumAlgorithm   string `env:"GENFILE_CHECKSUM_ALGORITHM"` // empty disables checksums
	ChecksumMaxSize     int64  `env:"GENFILE_CHECKSUM_MAX_SIZE,default:10485760"`
}

// ProviderSpec describes one configured provider.
type ProviderSpec struct {
	ID       string
	Kind     string
	Root     string
	ReadOnly bool
}

// MountPath returns the namespace subtree served by the provider.
func (s ProviderSpec) MountPath() Path {
	return RootPath().Join(s.ID)
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TreeCacheTTL returns the configured tree cache lifetime.
func (c *Config) TreeCacheTTL() time.Duration {
	if c.TreeCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TreeCacheTTLSeconds) * time.Second
}

// ProviderSpecs parses the Providers and ReadOnlyProviders settings.
func (c *Config) ProviderSpecs() ([]ProviderSpec, error) {
	readOnly := make(map[string]bool)
	for _, id := range splitList(c.ReadOnlyProviders) {
		readOnly[id] = true
	}

	providers := c.Providers
	if strings.TrimSpace(providers) == "" {
		providers = DefaultProviders
	}

	var specs []ProviderSpec
	seen := make(map[string]bool)
	for _, entry := range splitList(providers) {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid provider entry %q: want id:kind[:root]", entry)
		}
		if strings.Contains(parts[0], "/") {
			return nil, fmt.Errorf("invalid provider id %q: must not contain '/'", parts[0])
		}
		if seen[parts[0]] {
			return nil, fmt.Errorf("duplicate provider id %q", parts[0])
		}
		seen[parts[0]] = true

		spec := ProviderSpec{
			ID:       parts[0],
			Kind:     parts[1],
			ReadOnly: readOnly[parts[0]],
		}
		if len(parts) == 3 {
			spec.Root = parts[2]
		}
		specs = append(specs, spec)
	}

	for id := range readOnly {
		if !seen[id] {
			return nil, fmt.Errorf("read-only provider %q is not configured", id)
		}
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrInvalidProviderConfiguration)
	}
	return specs, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
