// Package embcache keeps query and passage embeddings in two tiers: a small
// in-process map in front of a shared key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/db"
	"github.com/kailas-cloud/aisearch/internal/domain"
)

const (
	keyPrefix = "aisearch:emb:"

	// DefaultLocalTTL bounds how long a vector stays in process memory.
	DefaultLocalTTL = 10 * time.Minute
)

// Lookup outcomes, used as the "result" label.
const (
	resultLocal  = "local"
	resultShared = "shared"
	resultMiss   = "miss"
)

type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options tune the cache. Namespace keeps models apart in a shared store,
// usually the model name. TTL 0 keeps shared entries forever.
type Options struct {
	Namespace string
	TTL       time.Duration
	LocalTTL  time.Duration
	Lookups   *prometheus.CounterVec // label "result"
	Logger    *zap.Logger
}

// Cache is a domain.Embedder that only calls inner on a miss in both tiers.
type Cache struct {
	inner domain.Embedder
	kv    kvStore
	local *gocache.Cache
	opts  Options
}

// New wraps inner. kv may be nil, leaving only the in-process tier.
func New(inner domain.Embedder, kv kvStore, opts Options) *Cache {
	if opts.LocalTTL <= 0 {
		opts.LocalTTL = DefaultLocalTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Cache{
		inner: inner,
		kv:    kv,
		local: gocache.New(opts.LocalTTL, 2*opts.LocalTTL),
		opts:  opts,
	}
}

// Embed serves text from cache when possible. Cached results report zero tokens.
func (c *Cache) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	if vec, ok := c.lookup(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.store(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed sends only the misses to inner, as one batch, and keeps input order.
func (c *Cache) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var pending []int

	for i, t := range texts {
		keys[i] = c.key(t)
		if vec, ok := c.lookup(ctx, keys[i]); ok {
			out[i] = vec
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	misses := make([]string, len(pending))
	for j, i := range pending {
		misses[j] = texts[i]
	}
	res, err := domain.BatchEmbed(ctx, c.inner, misses)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(misses), err)
	}
	if len(res.Embeddings) != len(misses) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: %d vectors for %d texts",
			domain.ErrEmbeddingProviderError, len(res.Embeddings), len(misses))
	}

	for j, i := range pending {
		out[i] = res.Embeddings[j]
		c.store(ctx, keys[i], out[i])
	}
	res.Embeddings = out
	return res, nil
}

// HealthCheck forwards to inner when it can probe itself.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}

// lookup checks the local tier, then the shared one, promoting shared hits.
func (c *Cache) lookup(ctx context.Context, key string) ([]float32, bool) {
	if v, ok := c.local.Get(key); ok {
		c.count(resultLocal)
		return v.([]float32), true
	}
	if c.kv == nil {
		c.count(resultMiss)
		return nil, false
	}

	data, err := c.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		c.count(resultMiss)
		return nil, false
	case err != nil:
		// store trouble degrades to a miss
		c.opts.Logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		c.count(resultMiss)
		return nil, false
	}

	vec := db.DecodeVector(string(data))
	if vec == nil {
		c.opts.Logger.Warn("Discarding malformed cached embedding", zap.String("key", key), zap.Int("bytes", len(data)))
		c.count(resultMiss)
		return nil, false
	}
	c.local.SetDefault(key, vec)
	c.count(resultShared)
	return vec, true
}

func (c *Cache) store(ctx context.Context, key string, vec []float32) {
	c.local.SetDefault(key, vec)
	if c.kv == nil {
		return
	}
	data := []byte(db.EncodeVector(vec))
	var err error
	if c.opts.TTL > 0 {
		err = c.kv.SetWithTTL(ctx, key, data, c.opts.TTL)
	} else {
		err = c.kv.Set(ctx, key, data)
	}
	if err != nil {
		c.opts.Logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + c.opts.Namespace + ":" + hex.EncodeToString(sum[:])
}

func (c *Cache) count(result string) {
	if c.opts.Lookups != nil {
		c.opts.Lookups.WithLabelValues(result).Inc()
	}
}
