package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/themobileprof/symptomcheck/internal/knowledge"
)

// ErrNotFound is returned when a condition is not in the catalog.
var ErrNotFound = errors.New("condition not found")

// Provider supplies training data and condition details.
type Provider interface {
	TrainingSamples(ctx context.Context) ([]knowledge.Sample, error)
	Condition(ctx context.Context, id string) (knowledge.Condition, error)
}

// Builtin serves the embedded knowledge base and corpus.
type Builtin struct {
	base *knowledge.Base
}

// NewBuiltin wraps a knowledge base as a Provider.
func NewBuiltin(base *knowledge.Base) *Builtin {
	return &Builtin{base: base}
}

// TrainingSamples returns the built-in fallback corpus.
func (b *Builtin) TrainingSamples(ctx context.Context) ([]knowledge.Sample, error) {
	return b.base.FallbackCorpus(), nil
}

// Condition looks the id up in the knowledge base.
func (b *Builtin) Condition(ctx context.Context, id string) (knowledge.Condition, error) {
	c, ok := b.base.Lookup(id)
	if !ok {
		return knowledge.Condition{}, ErrNotFound
	}
	return c, nil
}

// Fallback tries a primary provider and falls back when it fails or is empty.
type Fallback struct {
	primary  Provider
	fallback Provider
}

// WithFallback chains primary and fallback. A nil primary always uses fallback.
func WithFallback(primary, fallback Provider) *Fallback {
	return &Fallback{primary: primary, fallback: fallback}
}

// TrainingSamples returns primary samples, or the fallback corpus when the
// primary is unavailable or has no rows.
func (f *Fallback) TrainingSamples(ctx context.Context) ([]knowledge.Sample, error) {
	if f.primary != nil {
		samples, err := f.primary.TrainingSamples(ctx)
		switch {
		case err != nil:
			log.Printf("catalog unavailable, using built-in corpus: %v", err)
		case len(samples) == 0:
			log.Printf("catalog has no training samples, using built-in corpus")
		default:
			return samples, nil
		}
	}
	return f.fallback.TrainingSamples(ctx)
}

// Condition returns the primary's entry, or the fallback's when the primary
// does not know the id or fails.
func (f *Fallback) Condition(ctx context.Context, id string) (knowledge.Condition, error) {
	if f.primary != nil {
		c, err := f.primary.Condition(ctx, id)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNotFound) {
			log.Printf("catalog lookup for %s failed: %v", id, err)
		}
	}
	return f.fallback.Condition(ctx, id)
}

// Cached memoizes condition lookups in an in-process go-cache.
type Cached struct {
	Provider
	cache *cache.Cache
}

// NewCached wraps p with a TTL cache for Condition.
func NewCached(p Provider, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{Provider: p, cache: cache.New(ttl, 2*ttl)}
}

// Condition serves from cache when possible. Misses are not cached.
func (c *Cached) Condition(ctx context.Context, id string) (knowledge.Condition, error) {
	key := knowledge.NormalizeID(id)
	if v, ok := c.cache.Get(key); ok {
		return v.(knowledge.Condition), nil
	}
	cond, err := c.Provider.Condition(ctx, key)
	if err != nil {
		return knowledge.Condition{}, fmt.Errorf("condition %s: %w", key, err)
	}
	c.cache.SetDefault(key, cond)
	return cond, nil
}

// Flush drops all cached conditions.
func (c *Cached) Flush() {
	c.cache.Flush()
}
