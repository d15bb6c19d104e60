// Package config loads and validates the distribution server's TOML
// configuration: server profiles, cache sizing, hot-reload timing, and the
// storage/CDN backends a rescan drives.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full parsed configuration file.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	HotReload HotReloadConfig `mapstructure:"hot-reload"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Servers   []ProfileConfig `mapstructure:"servers"`
}

// ServerConfig holds the listener and base-URL settings.
type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	BaseURL                 string        `mapstructure:"base_url"`
	BasePath                string        `mapstructure:"base_path"`
	StreamingThresholdMB    int64         `mapstructure:"streaming_threshold_mb"`
	HashConcurrency         int           `mapstructure:"hash_concurrency"`
	ChecksumBufferSize      int           `mapstructure:"checksum_buffer_size"`
	RescanInterval          time.Duration `mapstructure:"rescan_interval"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

// CacheConfig holds the file-content LRU's sizing.
type CacheConfig struct {
	MaxMemoryCacheGB int64           `mapstructure:"max_memory_cache_gb"`
	Batch            CacheBatchConfig `mapstructure:"batch"`
}

// CacheBatchConfig controls the warm-up worker pool.
type CacheBatchConfig struct {
	WorkerCount int `mapstructure:"worker_count"`
	QueueDepth  int `mapstructure:"queue_depth"`
}

// HotReloadConfig groups the two independently-debounced watchers: the
// config file itself, and each profile's content directory.
type HotReloadConfig struct {
	Config HotReloadConfigFile  `mapstructure:"config"`
	Files  HotReloadFilesConfig `mapstructure:"files"`
}

type HotReloadConfigFile struct {
	Enabled    bool `mapstructure:"enabled"`
	DebounceMS int  `mapstructure:"debounce_ms"`
}

type HotReloadFilesConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	DebounceMS int  `mapstructure:"debounce_ms"`
}

// StorageConfig selects and configures the Storage Adapter.
type StorageConfig struct {
	Backend string          `mapstructure:"backend"` // "local" or "s3"
	S3      StorageS3Config `mapstructure:"s3"`
}

// StorageS3Config configures the S3-compatible remote Storage Adapter.
type StorageS3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketPrefix    string `mapstructure:"bucket_prefix"`
	PublicURL       string `mapstructure:"public_url"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// CloudflareConfig configures the CDN Purge Client.
type CloudflareConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ZoneID    string `mapstructure:"zone_id"`
	APIToken  string `mapstructure:"api_token"`
	APIBase   string `mapstructure:"api_base"`
}

// ProfileConfig is one `[[servers]]` entry: a logical update target with its
// own directory tree and manifest.
type ProfileConfig struct {
	Name          string   `mapstructure:"name"`
	Enabled       bool     `mapstructure:"enabled"`
	Loader        string   `mapstructure:"loader"`
	LoaderVersion string   `mapstructure:"loader_version"`
	MCVersion     string   `mapstructure:"mc_version"`
	MainClass     string   `mapstructure:"main_class"`
	JavaVersion   int      `mapstructure:"java_version"`
	EnableClient  bool     `mapstructure:"enable_client"`
	EnableLibs    bool     `mapstructure:"enable_libraries"`
	EnableMods    bool     `mapstructure:"enable_mods"`
	EnableNatives bool     `mapstructure:"enable_natives"`
	EnableAssets  bool     `mapstructure:"enable_assets"`
	GameArgs      []string `mapstructure:"game_args"`
	JVMArgs       []string `mapstructure:"jvm_args"`
}

// Equal reports whether two profile configs carry identical values for the
// fields the hot-reload controller treats as "modified" triggers.
func (p ProfileConfig) Equal(other ProfileConfig) bool {
	if p.Enabled != other.Enabled ||
		p.Loader != other.Loader ||
		p.LoaderVersion != other.LoaderVersion ||
		p.MCVersion != other.MCVersion ||
		p.MainClass != other.MainClass ||
		p.JavaVersion != other.JavaVersion ||
		p.EnableClient != other.EnableClient ||
		p.EnableLibs != other.EnableLibs ||
		p.EnableMods != other.EnableMods ||
		p.EnableNatives != other.EnableNatives ||
		p.EnableAssets != other.EnableAssets {
		return false
	}
	return stringsEqual(p.GameArgs, other.GameArgs) && stringsEqual(p.JVMArgs, other.JVMArgs)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EnvConfigPath is the environment variable naming the config file path.
const EnvConfigPath = "LIGHTY_CONFIG"

// DefaultConfigPath is used when EnvConfigPath is unset.
const DefaultConfigPath = "config.toml"

// Load reads and validates configuration from configPath (TOML), falling
// back to documented defaults for anything absent. Environment variables
// override file values using the LIGHTY_CONFIG-prefix-free convention
// (nested keys joined by underscore, e.g. SERVER_PORT).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read %q: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.base_path", "./data")
	v.SetDefault("server.streaming_threshold_mb", 100)
	v.SetDefault("server.hash_concurrency", 100)
	v.SetDefault("server.checksum_buffer_size", 8192)
	v.SetDefault("server.rescan_interval", "30s")
	v.SetDefault("server.graceful_shutdown_timeout", "30s")

	v.SetDefault("cache.max_memory_cache_gb", 0)
	v.SetDefault("cache.batch.worker_count", 8)
	v.SetDefault("cache.batch.queue_depth", 256)

	v.SetDefault("hot-reload.config.enabled", true)
	v.SetDefault("hot-reload.config.debounce_ms", 500)
	v.SetDefault("hot-reload.files.enabled", true)
	v.SetDefault("hot-reload.files.debounce_ms", 500)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("cloudflare.enabled", false)
	v.SetDefault("cloudflare.api_base", "https://api.cloudflare.com/client/v4")
}

// Validate checks structural invariants that must hold before any
// component is constructed from this config.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Server.BasePath == "" {
		return fmt.Errorf("server.base_path must not be empty")
	}
	if c.Storage.Backend != "local" && c.Storage.Backend != "s3" {
		return fmt.Errorf("invalid storage.backend: %q (must be 'local' or 's3')", c.Storage.Backend)
	}
	if c.Storage.Backend == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when storage.backend='s3'")
	}
	seen := make(map[string]bool, len(c.Servers))
	for _, p := range c.Servers {
		if err := ValidateProfileName(p.Name); err != nil {
			return fmt.Errorf("servers: %w", err)
		}
		if seen[p.Name] {
			return fmt.Errorf("servers: duplicate profile name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// IsEventMode reports whether rescan_interval == 0, selecting the
// watcher-driven loop over the ticker-driven one.
func (c *Config) IsEventMode() bool {
	return c.Server.RescanInterval == 0
}

// EnabledProfiles returns the subset of configured profiles with Enabled set.
func (c *Config) EnabledProfiles() []ProfileConfig {
	out := make([]ProfileConfig, 0, len(c.Servers))
	for _, p := range c.Servers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}
