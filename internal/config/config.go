// Package config загружает конфигурацию узла: значения по умолчанию,
// необязательный YAML файл и переменные окружения DELTASYNC_*.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/iudanet/deltasync/internal/replica"
	"github.com/iudanet/deltasync/internal/validation"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "DELTASYNC"

// Драйверы хранилища
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config конфигурация узла
type Config struct {
	Node      NodeConfig      `mapstructure:"node"`
	Collab    CollabConfig    `mapstructure:"collab"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// NodeConfig идентичность и сеть узла
type NodeConfig struct {
	ID           string        `mapstructure:"id"`     // пустой ID генерируется при старте
	Listen       string        `mapstructure:"listen"` // адрес HTTP сервера
	Peers        []string      `mapstructure:"peers"`  // базовые URL пиров
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

// CollabConfig коллаборация и параметры реплик
type CollabConfig struct {
	Name               string `mapstructure:"name"`
	Type               string `mapstructure:"type"`
	MaxDeltaRetention  int    `mapstructure:"max_delta_retention"`
	DeltaTrimTimeoutMS int    `mapstructure:"delta_trim_timeout_ms"`
	MaxHierarchyDepth  int    `mapstructure:"max_hierarchy_depth"`
	ReplicateOnly      bool   `mapstructure:"replicate_only"`
}

// StorageConfig хранилище снимков
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	Secret string `mapstructure:"secret"` // пустой секрет отключает шифрование
}

// AuthConfig выдача и проверка токенов пиров
type AuthConfig struct {
	Secret string `mapstructure:"secret"` // общий секрет коллаборации; пустой отключает аутентификацию
	// JWTSecret ключ подписи токенов узла; пустой генерируется при старте
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LogConfig уровень логирования
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// RateLimitConfig ограничение частоты запросов по IP
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	Enabled           bool    `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("node.id", "")
	v.SetDefault("node.listen", ":8080")
	v.SetDefault("node.peers", []string{})
	v.SetDefault("node.sync_interval", 5*time.Second)

	v.SetDefault("collab.name", "default")
	v.SetDefault("collab.type", "gset")
	v.SetDefault("collab.max_delta_retention", replica.DefaultMaxDeltaRetention)
	v.SetDefault("collab.delta_trim_timeout_ms", int(replica.DefaultDeltaTrimTimeout/time.Millisecond))
	v.SetDefault("collab.max_hierarchy_depth", replica.DefaultMaxHierarchyDepth)
	v.SetDefault("collab.replicate_only", false)

	v.SetDefault("storage.driver", DriverBolt)
	v.SetDefault("storage.path", "deltasync.db")
	v.SetDefault("storage.secret", "")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 15*time.Minute)

	v.SetDefault("log.level", "info")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50.0)
	v.SetDefault("rate_limit.burst", 100)
}

// Load читает конфигурацию. path может быть пустым: тогда используются
// только значения по умолчанию и окружение.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	var errs []error

	if c.Collab.Name == "" {
		errs = append(errs, errors.New("collab.name cannot be empty"))
	}
	if strings.Contains(c.Collab.Name, "/") {
		errs = append(errs, fmt.Errorf("collab.name %q must not contain '/'", c.Collab.Name))
	}
	if c.Collab.MaxDeltaRetention < 0 {
		errs = append(errs, fmt.Errorf("collab.max_delta_retention must be >= 0, got %d", c.Collab.MaxDeltaRetention))
	}
	if c.Collab.DeltaTrimTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("collab.delta_trim_timeout_ms must be >= 0, got %d", c.Collab.DeltaTrimTimeoutMS))
	}

	switch c.Storage.Driver {
	case DriverBolt, DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	if c.Node.SyncInterval <= 0 {
		errs = append(errs, errors.New("node.sync_interval must be positive"))
	}
	if c.Auth.Secret != "" {
		if err := validation.ValidateSecret(c.Auth.Secret); err != nil {
			errs = append(errs, fmt.Errorf("auth.secret: %w", err))
		}
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limit requires positive requests_per_second and burst"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ReplicaOptions строит настройки реплик
func (c *Config) ReplicaOptions(logger *slog.Logger) replica.Options {
	return replica.Options{
		Logger:            logger,
		MaxDeltaRetention: c.Collab.MaxDeltaRetention,
		DeltaTrimTimeout:  c.DeltaTrimTimeout(),
		MaxHierarchyDepth: c.Collab.MaxHierarchyDepth,
		ReplicateOnly:     c.Collab.ReplicateOnly,
	}
}

// DeltaTrimTimeout интервал периодического сохранения реплик
func (c *Config) DeltaTrimTimeout() time.Duration {
	if c.Collab.DeltaTrimTimeoutMS <= 0 {
		return replica.DefaultDeltaTrimTimeout
	}
	return time.Duration(c.Collab.DeltaTrimTimeoutMS) * time.Millisecond
}

// SlogLevel преобразует уровень логирования
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", l.Level, err)
	}
	return level, nil
}
