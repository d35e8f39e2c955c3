package db

import (
	"context"
	"time"
)

// Store is everything the Valkey/Redis backend offers. Repositories depend on
// the narrow interfaces below, never on Store itself.
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Inspector
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore holds records and passages as hashes.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// KVStore backs the embedding cache.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager creates and probes FT indexes.
type IndexManager interface {
	CreateIndex(ctx context.Context, schema *Schema) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Inspector reports server identity and loaded modules.
type Inspector interface {
	ServerInfo(ctx context.Context) (*ServerInfo, error)
}

// ServerInfo is the subset of INFO / MODULE LIST the status probe needs.
type ServerInfo struct {
	Server  string // "valkey", "redis" or "postgres"
	Version string
	Modules []string
}

// HasSearch reports whether a vector search module (or the pgvector extension) is loaded.
func (i *ServerInfo) HasSearch() bool {
	for _, m := range i.Modules {
		switch m {
		case "search", "ft", "searchlight", "vector":
			return true
		}
	}
	return false
}
