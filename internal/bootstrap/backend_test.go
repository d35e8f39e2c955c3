package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/aisearch/internal/config"
)

func TestOpenBackend_UnknownDriver(t *testing.T) {
	cfg := config.Config{Database: config.DatabaseConfig{Driver: "mysql"}}
	cfg.ApplyDefaults()

	_, err := openBackend(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestOpenBackend_RedisWithoutAddrs(t *testing.T) {
	cfg := config.Config{Database: config.DatabaseConfig{Driver: config.DriverRedis}}
	cfg.ApplyDefaults()

	_, err := openBackend(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "addrs is required")
}

func TestSummarizerLoader_Disabled(t *testing.T) {
	off := false
	app := &App{Config: config.Config{Summarizer: config.SummarizerConfig{Enabled: &off}}}
	assert.Nil(t, app.summarizerLoader())

	on := true
	app.Config.Summarizer.Enabled = &on
	assert.NotNil(t, app.summarizerLoader())
}
