package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SUMMARY_MCP_CACHE_ARTIFACT_TTL.
const EnvPrefix = "SUMMARY_MCP"

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Store       StoreConfig       `mapstructure:"store"`
	Web         WebConfig         `mapstructure:"web"`
}

type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"` // zerolog level name
}

// CacheConfig sizes the in-memory caches.
type CacheConfig struct {
	ArtifactTTL time.Duration `mapstructure:"artifact_ttl"` // finished summaries
	RawTTL      time.Duration `mapstructure:"raw_ttl"`      // fetched page markdown
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"` // titles and descriptions
	PageSize    int           `mapstructure:"page_size"`    // items per listing page
	Sweep       time.Duration `mapstructure:"sweep"`        // 0 disables
}

type CoordinatorConfig struct {
	RetentionCap   int           `mapstructure:"retention_cap"`
	ComputeTimeout time.Duration `mapstructure:"compute_timeout"` // 0 disables
}

// StoreConfig locates the result store daemon and its bbolt file.
type StoreConfig struct {
	Socket string        `mapstructure:"socket"`
	DB     string        `mapstructure:"db"`
	Bucket string        `mapstructure:"bucket"`
	Sweep  time.Duration `mapstructure:"sweep"`
}

type WebConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	RequestDelay     time.Duration `mapstructure:"request_delay"`
	SummarySentences int           `mapstructure:"summary_sentences"`
	SearchEndpoint   string        `mapstructure:"search_endpoint"`
}

// Load reads configuration from configPath, or from config.yaml in the
// working directory or ~/.config/summary-mcp when configPath is empty.
// A missing config file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(homeDir(), ".config", "summary-mcp"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	cacheDir := filepath.Join(homeDir(), ".cache", "summary-mcp")

	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("cache.artifact_ttl", "24h")
	v.SetDefault("cache.raw_ttl", "1h")
	v.SetDefault("cache.metadata_ttl", "6h")
	v.SetDefault("cache.page_size", 10)
	v.SetDefault("cache.sweep", "10m")

	v.SetDefault("coordinator.retention_cap", 100)
	v.SetDefault("coordinator.compute_timeout", "2m")

	v.SetDefault("store.socket", filepath.Join(cacheDir, "store.sock"))
	v.SetDefault("store.db", filepath.Join(cacheDir, "store.bbolt"))
	v.SetDefault("store.bucket", "summaries")
	v.SetDefault("store.sweep", "1h")

	v.SetDefault("web.request_timeout", "20s")
	v.SetDefault("web.request_delay", "1s")
	v.SetDefault("web.summary_sentences", 5)
	v.SetDefault("web.search_endpoint", "https://html.duckduckgo.com/html/")
}

// Validate rejects values the components cannot work with.
func (c *Config) Validate() error {
	if c.Cache.PageSize <= 0 {
		return fmt.Errorf("cache.page_size must be positive, got %d", c.Cache.PageSize)
	}
	if c.Coordinator.RetentionCap < 0 {
		return fmt.Errorf("coordinator.retention_cap must not be negative, got %d", c.Coordinator.RetentionCap)
	}
	if c.Web.SummarySentences <= 0 {
		return fmt.Errorf("web.summary_sentences must be positive, got %d", c.Web.SummarySentences)
	}
	return nil
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return home
}
