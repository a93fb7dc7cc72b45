// Package config provides configuration management for the application.
//
// Values are resolved in this order, later sources winning:
//  1. built-in defaults
//  2. an optional YAML file (${VAR} and ${VAR:-default} placeholders expanded)
//  3. environment variables, including any loaded from a .env file
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"zarachat/internal/httpclient"
)

// Config holds the application configuration
type Config struct {
	Server          ServerConfig              `yaml:"server"`
	DefaultProvider string                    `yaml:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	Store           StoreConfig               `yaml:"store"`
	Logging         LogConfig                 `yaml:"logging"`
	Metrics         MetricsConfig             `yaml:"metrics"`
	HTTP            HTTPConfig                `yaml:"http"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string   `yaml:"port"`
	CORSOrigins   []string `yaml:"cors_origins"`
	BodySizeLimit string   `yaml:"body_size_limit"`
}

// ProviderConfig holds one upstream provider's credentials and overrides.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// StoreConfig selects the conversation store backend.
type StoreConfig struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the conversation store.
type RedisConfig struct {
	URL       string        `yaml:"url"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// HTTPConfig controls the upstream HTTP client.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ProviderNames lists the providers whose settings are read from the environment.
var ProviderNames = []string{"gemini", "deepseek", "groq", "openai"}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8787",
			CORSOrigins:   []string{"http://localhost:8080"},
			BodySizeLimit: "10M",
		},
		DefaultProvider: "gemini",
		Providers:       make(map[string]ProviderConfig),
		Store: StoreConfig{
			Type: "memory",
			Redis: RedisConfig{
				KeyPrefix: "zarachat:session:",
			},
		},
		Logging: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		HTTP: HTTPConfig{
			Timeout: 60 * time.Second,
		},
	}
}

// defaultConfigPaths are tried in order when no explicit path is given.
var defaultConfigPaths = []string{"config/config.yaml", "config.yaml"}

// Load reads configuration from file and environment.
// path may be empty, in which case CONFIG_PATH and then the default locations are tried;
// a missing default file is not an error, a missing explicit one is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		for _, p := range defaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return nil
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default}. Unset variables without a
// default are left as-is so misconfiguration stays visible.
func expandString(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		name, def := parts[1], parts[2]
		hasDefault := strings.Contains(m, ":-")

		if val := os.Getenv(name); val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		return m
	})
}

// applyEnv overlays environment variables. Empty variables are ignored.
func applyEnv(cfg *Config) error {
	setString(&cfg.DefaultProvider, "MODEL_PROVIDER")

	for _, name := range ProviderNames {
		prefix := strings.ToUpper(name)
		p := cfg.Providers[name]
		setString(&p.APIKey, prefix+"_API_KEY")
		setString(&p.BaseURL, prefix+"_BASE_URL")
		setString(&p.Model, prefix+"_MODEL")
		if p != (ProviderConfig{}) {
			cfg.Providers[name] = p
		}
	}

	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.BodySizeLimit, "BODY_SIZE_LIMIT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	setString(&cfg.Store.Type, "STORE_TYPE")
	setString(&cfg.Store.Redis.URL, "REDIS_URL")
	setString(&cfg.Store.Redis.KeyPrefix, "REDIS_KEY_PREFIX")
	if err := setDuration(&cfg.Store.Redis.TTL, "REDIS_TTL"); err != nil {
		return err
	}

	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		cfg.Metrics.Enabled = enabled
	}
	setString(&cfg.Metrics.Endpoint, "METRICS_ENDPOINT")

	return setDuration(&cfg.HTTP.Timeout, "HTTP_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// setDuration accepts plain integers (seconds) or Go duration strings.
func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, ok := httpclient.ParseDuration(v)
	if !ok {
		return fmt.Errorf("invalid %s %q: expected seconds or a duration such as 90s", key, v)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

var bodySizePattern = regexp.MustCompile(`^\d+[KMGTP]?$`)

// Validate checks settings that would otherwise fail later at startup.
// An unknown default provider is allowed; requests fail with a 400 instead.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server port must not be empty")
	}
	if !bodySizePattern.MatchString(c.Server.BodySizeLimit) {
		return fmt.Errorf("invalid body size limit %q: expected a number with optional K, M, G, T or P suffix", c.Server.BodySizeLimit)
	}

	switch strings.ToLower(c.Store.Type) {
	case "memory":
	case "redis":
		if c.Store.Redis.URL == "" {
			return errors.New("store type redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown store type %q: expected memory or redis", c.Store.Type)
	}
	if c.Store.Redis.TTL < 0 {
		return errors.New("redis TTL must not be negative")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Endpoint, "/") {
		return fmt.Errorf("metrics endpoint %q must start with /", c.Metrics.Endpoint)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("HTTP timeout must be positive")
	}
	return nil
}
