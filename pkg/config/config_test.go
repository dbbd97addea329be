package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderAppliesDefaults(t *testing.T) {
	cfg, loader := Loader()
	require.NoError(t, loader.Load())

	assert.Equal(t, "https://index.example.com", cfg.Publish.URL)
	assert.Equal(t, 1800, cfg.Publish.Timeout)
	assert.True(t, cfg.Publish.SkipExisting)
	assert.Equal(t, "127.0.0.1:8080", cfg.Index.Address)
	assert.Equal(t, "index-data", cfg.Index.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())
}

func validConfig() *Config {
	cfg := Config{}
	cfg.Publish.URL = "http://127.0.0.1:8080"
	cfg.Publish.Timeout = 1800
	cfg.Log.Level = "info"
	return &cfg
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := validConfig()
	cfg.Publish.URL = "ftp://example.com"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish.url")

	cfg = validConfig()
	cfg.Publish.URL = "not a url"
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Log.Level = "loud"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")

	cfg = validConfig()
	cfg.Publish.Timeout = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish.timeout")
}

func TestValidateRejectsAmbiguousAuth(t *testing.T) {
	cfg := validConfig()
	cfg.Publish.Token = "secret"
	require.NoError(t, cfg.Validate())

	cfg.Publish.Username = "andrew"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ambiguous auth config")

	cfg.Publish.Token = ""
	cfg.Publish.Password = "hunter2"
	require.NoError(t, cfg.Validate())
}
