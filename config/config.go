// Package config loads service configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ytsum/ytsum/logutil"
	"github.com/ytsum/ytsum/notion"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "ytsum.yaml"

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	KeyVault KeyVaultConfig `yaml:"keyVault"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Notion   notion.Config  `yaml:"notion"`
	Email    EmailConfig    `yaml:"email"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  logutil.Config `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr        string  `yaml:"addr"`
	MetricsAddr string  `yaml:"metricsAddr"`
	RateLimit   float64 `yaml:"rateLimit"` // requests per second
	RateBurst   int     `yaml:"rateBurst"`
}

// KeyVaultConfig names the Azure Key Vault holding API secrets. An empty
// URL means secrets come from YTSUM_* environment variables instead.
type KeyVaultConfig struct {
	URL string `yaml:"url"`
}

// GeminiConfig tunes the summarization client.
type GeminiConfig struct {
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// EmailConfig controls the notification mailer. Empty From/To disables
// email entirely.
type EmailConfig struct {
	ConnectionString string `yaml:"connectionString"`
	From             string `yaml:"from"`
	To               string `yaml:"to"`
}

// Enabled reports whether email notification is configured.
func (e EmailConfig) Enabled() bool {
	return e.From != "" && e.To != "" && e.ConnectionString != ""
}

// CacheConfig controls the on-disk summary cache. An empty Dir disables it.
type CacheConfig struct {
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
			RateLimit:   2,
			RateBurst:   5,
		},
		Gemini: GeminiConfig{
			Timeout: 5 * time.Minute,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Logging: logutil.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path (when it exists) over the defaults,
// then applies environment overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus env is a valid configuration.
	default:
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays YTSUM_* environment variables on the loaded values.
func (c *Config) applyEnv() {
	overlayString(&c.Server.Addr, "YTSUM_ADDR")
	overlayString(&c.Server.MetricsAddr, "YTSUM_METRICS_ADDR")
	overlayFloat(&c.Server.RateLimit, "YTSUM_RATE_LIMIT")
	overlayString(&c.KeyVault.URL, "YTSUM_KEY_VAULT_URL")
	overlayString(&c.Gemini.Model, "YTSUM_GEMINI_MODEL")
	overlayString(&c.Notion.DatabaseID, "YTSUM_NOTION_DATABASE_ID")
	overlayString(&c.Email.ConnectionString, "YTSUM_ACS_CONNECTION_STRING")
	overlayString(&c.Email.From, "YTSUM_EMAIL_FROM")
	overlayString(&c.Email.To, "YTSUM_EMAIL_TO")
	overlayString(&c.Cache.Dir, "YTSUM_CACHE_DIR")
	overlayString(&c.Logging.Level, "YTSUM_LOG_LEVEL")
	overlayString(&c.Logging.File, "YTSUM_LOG_FILE")
}

// Validate checks cross-field consistency. Collaborator-specific checks
// (vault URL grammar, Notion database ID) happen in their own packages at
// construction time.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit cannot be negative")
	}
	if (c.Email.From == "") != (c.Email.To == "") {
		return fmt.Errorf("email.from and email.to must be set together")
	}
	return nil
}

func overlayString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func overlayFloat(target *float64, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}
