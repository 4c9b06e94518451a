package embed

import (
	"fmt"
)

// New creates an embedder for the configured provider, wrapped in an LRU
// cache unless caching is disabled with a negative CacheSize.
func New(cfg Config) (Embedder, error) {
	var inner Embedder
	switch cfg.Provider {
	case "", "ollama":
		inner = NewOllamaEmbedder(cfg)
	case "static":
		inner = NewStaticEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (valid: ollama, static)", cfg.Provider)
	}

	if cfg.CacheSize < 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
