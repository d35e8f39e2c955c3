package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/config"
	"github.com/kailas-cloud/aisearch/internal/db"
	dbRedis "github.com/kailas-cloud/aisearch/internal/db/redis"
	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
	passagerepo "github.com/kailas-cloud/aisearch/internal/repository/passage"
	"github.com/kailas-cloud/aisearch/internal/repository/pgstore"
	recordrepo "github.com/kailas-cloud/aisearch/internal/repository/record"
)

// RecordIndex is the record side of a vector backend.
type RecordIndex interface {
	KNN(ctx context.Context, vec []float32, k int) ([]domrec.Scored, error)
	Get(ctx context.Context, id string) (domrec.Record, []float32, error)
	UpsertMulti(ctx context.Context, items []domrec.Embedded) error
	Count(ctx context.Context) (int, error)
}

// PassageIndex is the passage side of a vector backend.
type PassageIndex interface {
	IndexExists(ctx context.Context) (bool, error)
	KNN(ctx context.Context, vec []float32, k int) ([]chunk.Scored, error)
	UpsertMulti(ctx context.Context, chunks []chunk.Chunk) error
	ListByRecord(ctx context.Context, recordID string, limit int) ([]chunk.Chunk, error)
}

type backend struct {
	probe    probe
	records  RecordIndex
	passages PassageIndex
	kv       db.KVStore // nil for postgres
	ensure   func(ctx context.Context) error
	close    func()
}

type probe interface {
	Ping(ctx context.Context) error
	ServerInfo(ctx context.Context) (*db.ServerInfo, error)
}

// openBackend connects the configured vector store and waits until it answers.
func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	readiness := config.Seconds(cfg.Database.ReadinessTimeout)

	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, fmt.Errorf("%w: %s not ready: %v", domain.ErrServiceUnavailable, cfg.Database.Driver, err)
		}

		hnsw := recordrepo.HNSWConfig{M: cfg.Index.HNSWM, EFConstruct: cfg.Index.HNSWEFConstruct}
		records := recordrepo.New(store, recordrepo.Config{
			Index:     cfg.Index.Records,
			Prefix:    cfg.Index.RecordPrefix,
			VectorDim: cfg.Embedding.Dimensions,
			Algorithm: db.VectorHNSW,
			HNSW:      hnsw,
		})
		passages := passagerepo.New(store, passagerepo.Config{
			Index:     cfg.Index.Passages,
			Prefix:    cfg.Index.PassagePrefix,
			VectorDim: cfg.Embedding.Dimensions,
			Algorithm: db.VectorHNSW,
			HNSW:      passagerepo.HNSWConfig(hnsw),
		})
		return &backend{
			probe:    store,
			records:  records,
			passages: passages,
			kv:       store,
			ensure: func(ctx context.Context) error {
				if err := records.EnsureIndex(ctx); err != nil {
					return err
				}
				return passages.EnsureIndex(ctx)
			},
			close: store.Close,
		}, nil

	case config.DriverPostgres:
		store, err := pgstore.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, fmt.Errorf("%w: postgres not ready: %v", domain.ErrServiceUnavailable, err)
		}
		return &backend{
			probe:    store,
			records:  store.Records(),
			passages: store.Passages(),
			ensure: func(ctx context.Context) error {
				return store.EnsureSchema(ctx, cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct, logger)
			},
			close: store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
