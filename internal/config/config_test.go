package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.dsn"},
		{"postgres dims", func(c *Config) {
			c.Database.Driver = DriverPostgres
			c.Database.DSN = "postgres://localhost/aisearch"
			c.Embedding.Dimensions = 768
		}, "embedding.dimensions"},
		{"provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"mode", func(c *Config) { c.Search.Mode = "hybrid" }, "search.mode"},
		{"default above max", func(c *Config) { c.Search.DefaultLimit = 200 }, "search.default_limit"},
		{"semantic weight", func(c *Config) { c.Search.SemanticWeight = ptr(1.5) }, "semantic_weight"},
		{"metadata weight", func(c *Config) { c.Search.MetadataWeight = ptr(-0.1) }, "metadata_weight"},
		{"table source", func(c *Config) { c.Table.Source = "s3" }, "table.source"},
		{"summary lengths", func(c *Config) { c.Summarizer.MinLength = 500 }, "summarizer.min_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_PostgresOK(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = DriverPostgres
	cfg.Database.Addrs = nil
	cfg.Database.DSN = "postgres://localhost/aisearch"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != DriverValkey {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("expected Dimensions=384, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 100 {
		t.Errorf("expected limits 10/100, got %d/%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if *cfg.Search.SemanticWeight != 0.7 || *cfg.Search.MetadataWeight != 0.3 {
		t.Errorf("expected weights 0.7/0.3, got %v/%v", *cfg.Search.SemanticWeight, *cfg.Search.MetadataWeight)
	}
	if !cfg.SummarizerEnabled() {
		t.Error("expected summarizer enabled by default")
	}
	if !cfg.PassagesEnabled() {
		t.Error("expected passages enabled by default")
	}
	if cfg.Index.HNSWM != 16 || cfg.Index.HNSWEFConstruct != 200 {
		t.Errorf("expected hnsw 16/200, got %d/%d", cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct)
	}
	if cfg.Explain.MaxPassages != 1000 || cfg.Explain.TopN != 10 || cfg.Explain.TopTerms != 15 {
		t.Errorf("unexpected explain defaults: %+v", cfg.Explain)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Summarizer: SummarizerConfig{Enabled: ptr(false)},
		Search:     SearchConfig{SemanticWeight: ptr(0.0), MetadataWeight: ptr(1.0)},
		Index:      IndexConfig{HNSWM: 32, Records: "idx:custom"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.SummarizerEnabled() {
		t.Error("explicit enabled=false must survive defaults")
	}
	if *cfg.Search.SemanticWeight != 0 {
		t.Errorf("explicit zero weight overwritten: %v", *cfg.Search.SemanticWeight)
	}
	if cfg.Index.HNSWM != 32 || cfg.Index.Records != "idx:custom" {
		t.Errorf("index overrides lost: %+v", cfg.Index)
	}
}

func TestParse(t *testing.T) {
	t.Setenv("AISEARCH_TEST_ADDR", "valkey:6379")

	cfg, err := Parse([]byte(`
database:
  addrs: ["${AISEARCH_TEST_ADDR}"]
search:
  mode: table
  semantic_weight: 0.5
  metadata_weight: ${AISEARCH_TEST_UNSET:-0.5}
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Addrs[0] != "valkey:6379" {
		t.Errorf("expected expanded addr, got %q", cfg.Database.Addrs[0])
	}
	if cfg.Search.Mode != "table" {
		t.Errorf("expected mode table, got %q", cfg.Search.Mode)
	}
	if *cfg.Search.MetadataWeight != 0.5 {
		t.Errorf("expected default-expanded weight 0.5, got %v", *cfg.Search.MetadataWeight)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("search: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("search:\n  mode: nope\ndatabase:\n  addrs: [x]\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_ConfigPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 9090\ndatabase:\n  addrs: [localhost:6379]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("whatever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load("local"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMustLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte("database:\n  addrs: [localhost:6379]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	if cfg := MustLoad("local"); cfg.HTTP.Port == 0 {
		t.Error("expected defaults to be applied")
	}

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	defer func() {
		p := recover()
		if p == nil {
			t.Fatal("expected panic for missing file")
		}
		if msg, _ := p.(string); !strings.HasPrefix(msg, "failed to load config") {
			t.Errorf("unexpected panic value %v", p)
		}
	}()
	MustLoad("local")
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected local, got %q", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected prod, got %q", got)
	}
}
