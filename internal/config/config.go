package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Import    ImportConfig    `mapstructure:"import"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug or release
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console or json
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ImportConfig drives the batch scheduler and the persistence layer.
type ImportConfig struct {
	BatchSize       int               `mapstructure:"batch_size"`
	CooldownSeconds int               `mapstructure:"cooldown_seconds"`
	GroupDelay      time.Duration     `mapstructure:"group_delay"`
	SeasonDelay     time.Duration     `mapstructure:"season_delay"`
	WatchMarkStep   time.Duration     `mapstructure:"watch_mark_step"`
	EventBuffer     int               `mapstructure:"event_buffer"`
	ColonThreshold  int               `mapstructure:"colon_threshold"`
	TitleOverrides  map[string]string `mapstructure:"title_overrides"`
}

type ProvidersConfig struct {
	ProxyURL  string        `mapstructure:"proxy_url"`
	CacheSize int           `mapstructure:"cache_size"`
	Jikan     JikanConfig   `mapstructure:"jikan"`
	AniList   AniListConfig `mapstructure:"anilist"`
}

type JikanConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	RateLimitBackoff  time.Duration `mapstructure:"rate_limit_backoff"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type AniListConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

var AppConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8306)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "data/shelf.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("import.batch_size", 50)
	v.SetDefault("import.cooldown_seconds", 30)
	v.SetDefault("import.group_delay", 300*time.Millisecond)
	v.SetDefault("import.season_delay", 350*time.Millisecond)
	v.SetDefault("import.watch_mark_step", time.Second)
	v.SetDefault("import.event_buffer", 64)
	v.SetDefault("import.colon_threshold", 15)

	v.SetDefault("providers.proxy_url", "")
	v.SetDefault("providers.cache_size", 512)
	v.SetDefault("providers.jikan.base_url", "https://api.jikan.moe/v4")
	v.SetDefault("providers.jikan.requests_per_second", 3)
	v.SetDefault("providers.jikan.max_attempts", 3)
	v.SetDefault("providers.jikan.retry_backoff", time.Second)
	v.SetDefault("providers.jikan.rate_limit_backoff", 2*time.Second)
	v.SetDefault("providers.jikan.timeout", 10*time.Second)
	v.SetDefault("providers.anilist.endpoint", "https://graphql.anilist.co")
	v.SetDefault("providers.anilist.requests_per_minute", 90)
	v.SetDefault("providers.anilist.timeout", 10*time.Second)
	v.SetDefault("providers.anilist.breaker_failures", 5)
	v.SetDefault("providers.anilist.breaker_timeout", 2*time.Minute)
}

// LoadConfig reads config.yaml from the working directory (and configPath when
// given), applies SHELF_ environment overrides and stores the result in AppConfig.
func LoadConfig(configPath string) error {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	// SHELF_IMPORT_BATCH_SIZE=20 overrides import.batch_size
	v.SetEnvPrefix("SHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	AppConfig = cfg
	return nil
}

func (c *Config) Validate() error {
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("import.batch_size must be positive, got %d", c.Import.BatchSize)
	}
	if c.Import.CooldownSeconds < 0 {
		return fmt.Errorf("import.cooldown_seconds must not be negative")
	}
	if c.Providers.Jikan.MaxAttempts <= 0 {
		return fmt.Errorf("providers.jikan.max_attempts must be positive")
	}
	if c.Providers.Jikan.RequestsPerSecond <= 0 || c.Providers.AniList.RequestsPerMinute <= 0 {
		return fmt.Errorf("provider request rates must be positive")
	}
	return nil
}
