package afs

import "github.com/gobeaver/genfile"

func init() {
	genfile.RegisterProvider(KindLocal, func(spec genfile.ProviderSpec, cfg *genfile.Config) (genfile.Provider, error) {
		p, err := NewLocal(spec.ID, spec.Root, configOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	genfile.RegisterProvider(KindMemory, func(spec genfile.ProviderSpec, cfg *genfile.Config) (genfile.Provider, error) {
		p, err := NewMemory(spec.ID, configOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

func configOptions(cfg *genfile.Config) []Option {
	return []Option{
		WithActor(cfg.Actor),
		WithTreeCacheTTL(cfg.TreeCacheTTL()),
	}
}
