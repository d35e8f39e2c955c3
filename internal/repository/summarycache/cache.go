// Package summarycache memoizes generated summaries in process memory.
package summarycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// Summarizer wraps another summarizer. Failures are not cached.
type Summarizer struct {
	inner domain.Summarizer
	c     *cache.Cache
}

// New creates the decorator. ttl <= 0 disables expiry.
func New(inner domain.Summarizer, ttl time.Duration) *Summarizer {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Summarizer{inner: inner, c: cache.New(ttl, 10*time.Minute)}
}

// Summarize returns a cached summary for the same text and bounds, or asks the inner summarizer.
func (s *Summarizer) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	key := cacheKey(text, maxLen, minLen)
	if v, ok := s.c.Get(key); ok {
		return v.(string), nil
	}
	out, err := s.inner.Summarize(ctx, text, maxLen, minLen)
	if err != nil {
		return "", err
	}
	s.c.SetDefault(key, out)
	return out, nil
}

// Len is the number of cached summaries.
func (s *Summarizer) Len() int {
	return s.c.ItemCount()
}

func cacheKey(text string, maxLen, minLen int) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:]) + ":" + strconv.Itoa(maxLen) + ":" + strconv.Itoa(minLen)
}
