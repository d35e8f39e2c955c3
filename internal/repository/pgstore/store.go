// Package pgstore is the Postgres + pgvector backend for records and passages.
package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kailas-cloud/aisearch/internal/db"
	"github.com/kailas-cloud/aisearch/internal/domain"
)

// Store wraps a gorm connection.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and configures the pool. SQL logging is silent;
// failures are logged by callers through zap.
func Open(dsn string) (*Store, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return &Store{db: gdb}, nil
}

// New wraps an existing gorm handle.
func New(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// EnsureSchema creates the extension, the tables and the HNSW cosine indexes
// if they do not exist. Index parameters are fixed at creation time.
func (s *Store) EnsureSchema(ctx context.Context, m, efConstruction int, log *zap.Logger) error {
	tx := s.db.WithContext(ctx)
	if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	if err := tx.AutoMigrate(&recordRow{}, &passageRow{}); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	for _, stmt := range indexStatements(m, efConstruction) {
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	if log != nil {
		log.Info("Postgres schema ready", zap.Int("hnsw_m", m), zap.Int("hnsw_ef_construction", efConstruction))
	}
	return nil
}

func indexStatements(m, ef int) []string {
	return []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON records USING hnsw (embedding vector_cosine_ops) "+
			"WITH (m = %d, ef_construction = %d)", recordsIndex, m, ef),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON passages USING hnsw (embedding vector_cosine_ops) "+
			"WITH (m = %d, ef_construction = %d)", passagesIndex, m, ef),
	}
}

const (
	recordsIndex  = "records_embedding_hnsw"
	passagesIndex = "passages_embedding_hnsw"
)

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// ServerInfo reports the Postgres version and installed extensions.
func (s *Store) ServerInfo(ctx context.Context) (*db.ServerInfo, error) {
	tx := s.db.WithContext(ctx)
	var version string
	if err := tx.Raw("SHOW server_version").Scan(&version).Error; err != nil {
		return nil, fmt.Errorf("server version: %w", err)
	}
	var exts []string
	if err := tx.Raw("SELECT extname FROM pg_extension").Scan(&exts).Error; err != nil {
		return nil, fmt.Errorf("list extensions: %w", err)
	}
	return &db.ServerInfo{Server: "postgres", Version: strings.Fields(version + " ")[0], Modules: exts}, nil
}

func (s *Store) indexExists(ctx context.Context, name string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Raw("SELECT count(*) FROM pg_indexes WHERE indexname = ?", name).Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", name, err)
	}
	return n > 0, nil
}

func checkDim(id string, v []float32) error {
	if len(v) != domain.Dimension {
		return fmt.Errorf("%s: %w: got %d, want %d", id, domain.ErrVectorDimMismatch, len(v), domain.Dimension)
	}
	return nil
}
