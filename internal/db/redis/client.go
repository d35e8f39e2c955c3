// Package redis is the Valkey/Redis backend: hashes for records and passages,
// FT indexes for KNN, plain strings for the embedding cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/aisearch/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	readyBackoffMin = 50 * time.Millisecond
	readyBackoffMax = time.Second
)

// Config holds connection parameters for a Valkey or Redis server.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store talks to valkey-search or Redis 8+; both speak the same FT.* dialect.
type Store struct {
	client rueidis.Client
}

// NewStore dials the server. It does not wait for it; see WaitForReady.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	client, err := rueidis.NewClient(clientOption(cfg))
	if err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client}, nil
}

func clientOption(cfg Config) rueidis.ClientOption {
	return rueidis.ClientOption{
		InitAddress: cfg.Addrs,
		Username:    cfg.Username,
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
		// no client-side caching: records change under reindexing
		DisableCache: true,
		// FT.SEARCH replies are parsed as RESP2 arrays
		AlwaysRESP2: true,
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with growing pauses until the server answers or timeout runs out.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	pause := readyBackoffMin
	for {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("server not ready after %s: %w", timeout, lastErr)
		case <-time.After(pause):
		}
		pause = min(pause*2, readyBackoffMax)
	}
}

// command runs an FT.* or admin command given as space-separated tokens.
func (s *Store) command(ctx context.Context, name string, args ...string) rueidis.RedisResult {
	cmd := s.client.B().Arbitrary(strings.Fields(name)...).Args(args...).Build()
	return s.client.Do(ctx, cmd)
}

// serverSaid reports whether err is a server error reply mentioning fragment.
func serverSaid(err error, fragment string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), fragment)
}

func opError(op, target string, err error) error {
	return &db.Error{Op: op, Target: target, Err: err}
}
