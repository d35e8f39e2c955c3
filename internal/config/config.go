package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the aisearch configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Search     SearchConfig     `yaml:"search"`
	Table      TableConfig      `yaml:"table"`
	Index      IndexConfig      `yaml:"index"`
	Passages   PassagesConfig   `yaml:"passages"`
	Explain    ExplainConfig    `yaml:"explain"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File  string `yaml:"file"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// DatabaseConfig holds database connection settings. DSN is used by postgres only.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	DSN              string   `yaml:"dsn"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	LoadTimeoutSec int    `yaml:"load_timeout_sec"`
	CacheTTLSec    int    `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// SummarizerConfig holds summarization model settings.
type SummarizerConfig struct {
	Enabled           *bool  `yaml:"enabled"`
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	TimeoutSec        int    `yaml:"timeout_sec"`
	InputLimit        int    `yaml:"input_limit"`
	LongTextThreshold int    `yaml:"long_text_threshold"`
	MaxLength         int    `yaml:"max_length"`
	MinLength         int    `yaml:"min_length"`
}

// SearchConfig holds ranking settings. Weights are pointers so 0 can be set explicitly.
type SearchConfig struct {
	Mode               string   `yaml:"mode"` // ann, table
	DefaultLimit       int      `yaml:"default_limit"`
	MaxLimit           int      `yaml:"max_limit"`
	SemanticWeight     *float64 `yaml:"semantic_weight"`
	MetadataWeight     *float64 `yaml:"metadata_weight"`
	ANNBlendMetadata   bool     `yaml:"ann_blend_metadata"`
	KNNTimeoutSec      int      `yaml:"knn_timeout_sec"`
	SummaryCacheTTLSec int      `yaml:"summary_cache_ttl_sec"`
	IncludePassages    bool     `yaml:"include_passages"`
}

// TableConfig locates the brute-force embedding table.
type TableConfig struct {
	Source    string `yaml:"source"` // file, badger
	Path      string `yaml:"path"`
	BadgerDir string `yaml:"badger_dir"`
}

// IndexConfig holds vector index names and HNSW settings.
type IndexConfig struct {
	Records         string `yaml:"records"`
	RecordPrefix    string `yaml:"record_prefix"`
	Passages        string `yaml:"passages"`
	PassagePrefix   string `yaml:"passage_prefix"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// PassagesConfig holds passage search and batch job settings.
type PassagesConfig struct {
	Enabled    *bool  `yaml:"enabled"`
	BatchSize  int    `yaml:"batch_size"`
	Workers    int    `yaml:"workers"`
	Checkpoint string `yaml:"checkpoint"`
}

// ExplainConfig bounds the passage comparison tool.
type ExplainConfig struct {
	MaxPassages int `yaml:"max_passages"`
	TopN        int `yaml:"top_n"`
	TopTerms    int `yaml:"top_terms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	return cfg
}

// LoadDotEnv loads .env from the working directory. A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.LoadTimeoutSec <= 0 {
		c.Embedding.LoadTimeoutSec = 60
	}

	if c.Summarizer.Enabled == nil {
		c.Summarizer.Enabled = ptr(true)
	}
	if c.Summarizer.TimeoutSec <= 0 {
		c.Summarizer.TimeoutSec = 30
	}
	if c.Summarizer.InputLimit <= 0 {
		c.Summarizer.InputLimit = 1024
	}
	if c.Summarizer.LongTextThreshold <= 0 {
		c.Summarizer.LongTextThreshold = 500
	}
	if c.Summarizer.MaxLength <= 0 {
		c.Summarizer.MaxLength = 150
	}
	if c.Summarizer.MinLength <= 0 {
		c.Summarizer.MinLength = 50
	}

	if c.Search.Mode == "" {
		c.Search.Mode = "ann"
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.SemanticWeight == nil {
		c.Search.SemanticWeight = ptr(0.7)
	}
	if c.Search.MetadataWeight == nil {
		c.Search.MetadataWeight = ptr(0.3)
	}
	if c.Search.KNNTimeoutSec <= 0 {
		c.Search.KNNTimeoutSec = 5
	}
	if c.Search.SummaryCacheTTLSec <= 0 {
		c.Search.SummaryCacheTTLSec = 3600
	}

	if c.Table.Source == "" {
		c.Table.Source = "file"
	}
	if c.Table.Path == "" {
		c.Table.Path = "data/embeddings.json"
	}
	if c.Table.BadgerDir == "" {
		c.Table.BadgerDir = "data/badger"
	}

	if c.Index.Records == "" {
		c.Index.Records = "idx:records"
	}
	if c.Index.RecordPrefix == "" {
		c.Index.RecordPrefix = "rec:"
	}
	if c.Index.Passages == "" {
		c.Index.Passages = "idx:passages"
	}
	if c.Index.PassagePrefix == "" {
		c.Index.PassagePrefix = "chunk:"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}

	if c.Passages.Enabled == nil {
		c.Passages.Enabled = ptr(true)
	}
	if c.Passages.BatchSize <= 0 {
		c.Passages.BatchSize = 100
	}
	if c.Passages.Workers <= 0 {
		c.Passages.Workers = 4
	}
	if c.Passages.Checkpoint == "" {
		c.Passages.Checkpoint = "data/passages.cursor"
	}

	if c.Explain.MaxPassages <= 0 {
		c.Explain.MaxPassages = 1000
	}
	if c.Explain.TopN <= 0 {
		c.Explain.TopN = 10
	}
	if c.Explain.TopTerms <= 0 {
		c.Explain.TopTerms = 15
	}
}

// pgvectorDim is the width of the vector columns created by the postgres schema.
const pgvectorDim = 384

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
		if c.Embedding.Dimensions != pgvectorDim {
			return fmt.Errorf("embedding.dimensions must be %d for postgres, got %d",
				pgvectorDim, c.Embedding.Dimensions)
		}
	default:
		return fmt.Errorf("database.driver must be valkey, redis or postgres, got %q", c.Database.Driver)
	}

	if c.Embedding.Provider != "openai" {
		return fmt.Errorf("embedding.provider must be \"openai\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}

	switch c.Search.Mode {
	case "ann", "table":
	default:
		return fmt.Errorf("search.mode must be \"ann\" or \"table\", got %q", c.Search.Mode)
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit must be between 1 and max_limit (%d), got %d",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	for name, w := range map[string]float64{
		"semantic_weight": *c.Search.SemanticWeight,
		"metadata_weight": *c.Search.MetadataWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("search.%s must be between 0 and 1, got %v", name, w)
		}
	}

	switch c.Table.Source {
	case "file", "badger":
	default:
		return fmt.Errorf("table.source must be \"file\" or \"badger\", got %q", c.Table.Source)
	}

	if c.Summarizer.MinLength > c.Summarizer.MaxLength {
		return fmt.Errorf("summarizer.min_length (%d) exceeds max_length (%d)",
			c.Summarizer.MinLength, c.Summarizer.MaxLength)
	}
	return nil
}

// SummarizerEnabled reports whether summaries are configured.
func (c *Config) SummarizerEnabled() bool {
	return c.Summarizer.Enabled != nil && *c.Summarizer.Enabled
}

// PassagesEnabled reports whether passage search and indexing are on.
func (c *Config) PassagesEnabled() bool {
	return c.Passages.Enabled != nil && *c.Passages.Enabled
}

// Seconds converts a *_sec setting.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// findConfigPath locates the config file: CONFIG_PATH wins, then config/<env>.yaml
// in the working directory or the nearest parent that has one.
func findConfigPath(env string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	rel := filepath.Join("config", fmt.Sprintf("%s.yaml", env))

	dir, err := os.Getwd()
	if err != nil {
		return rel
	}
	for {
		if path := filepath.Join(dir, rel); fileExists(path) {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return rel
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func ptr[T any](v T) *T { return &v }

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
