// Package config loads tool configuration from yagni.toml and the
// environment (YAGNI_* variables).
package config

import (
	"net/url"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config describes all configuration options
type Config struct {
	Publish struct {
		URL          string `default:"https://index.example.com" usage:"Package index to upload artifacts to"`
		Token        string `usage:"Bearer token for the package index"`
		Username     string `usage:"Basic auth username for the package index"`
		Password     string `usage:"Basic auth password for the package index"`
		Timeout      int    `default:"1800" usage:"Upload timeout in seconds"`
		SkipExisting bool   `default:"true" usage:"Skip artifacts the index already has"`
	}
	Index struct {
		Address string `default:"127.0.0.1:8080" usage:"Address to listen on"`
		DataDir string `default:"index-data" usage:"Directory to store uploaded artifacts in"`
		Token   string `usage:"Token required for uploads"`
	}
	Log struct {
		Level string `default:"info"`
		JSON  bool   `default:"false" usage:"Output newline-delimited JSON instead of pretty console messages"`
	}
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Loader initializes an empty config object and returns a new Loader for
// this object. Flags are skipped on purpose; the CLI owns those.
func Loader() (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "YAGNI",
		SkipFlags: true,
		Files:     []string{"yagni.toml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	cfg, loader := Loader()
	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(err, "Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	parsed, err := url.Parse(cfg.Publish.URL)
	if err != nil {
		return eris.Wrapf(err, `Invalid value for publish.url`)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return eris.Errorf(`Invalid value for publish.url: %s (must be an http or https URL)`, cfg.Publish.URL)
	}

	if cfg.Publish.Token != "" && (cfg.Publish.Username != "" || cfg.Publish.Password != "") {
		return eris.New(`Ambiguous auth config: set either publish.token or publish.username, not both`)
	}

	if cfg.Publish.Timeout < 1 {
		return eris.Errorf(`Invalid value for publish.timeout: %d (must be positive)`, cfg.Publish.Timeout)
	}

	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
