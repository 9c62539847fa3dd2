package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Running struct {
		Port int    `mapstructure:"port"`
		Mode string `mapstructure:"mode"` // gin mode: debug | release | test
	} `mapstructure:"running"`
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
	Database struct {
		Driver          string        `mapstructure:"driver"` // mysql | postgres
		DSN             string        `mapstructure:"dsn"`
		MaxOpenConns    int           `mapstructure:"maxOpenConns"`
		MaxIdleConns    int           `mapstructure:"maxIdleConns"`
		ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
		AutoMigrate     bool          `mapstructure:"autoMigrate"`
	} `mapstructure:"database"`
	Redis struct {
		Addrs    []string `mapstructure:"addrs"`
		Password string   `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers   []string `mapstructure:"brokers"`
		Topic     string   `mapstructure:"topic"`
		GroupID   string   `mapstructure:"groupId"`
		QueueSize int      `mapstructure:"queueSize"`
		Workers   int      `mapstructure:"workers"`
		MaxRetry  int      `mapstructure:"maxRetry"`
	} `mapstructure:"kafka"`
	Auth struct {
		// Path is the auth service base URL; when set, tokens are verified remotely.
		Path   string `mapstructure:"path"`
		Secret string `mapstructure:"secret"`
	} `mapstructure:"auth"`
	Cache struct {
		CounterTTL    time.Duration `mapstructure:"counterTTL"`
		CounterJitter time.Duration `mapstructure:"counterJitter"`
		CatalogTTL    time.Duration `mapstructure:"catalogTTL"`
		UserStoreTTL  time.Duration `mapstructure:"userStoreTTL"`
	} `mapstructure:"cache"`
	CORS struct {
		Enabled      bool     `mapstructure:"enabled"`
		AllowOrigins []string `mapstructure:"allowOrigins"`
	} `mapstructure:"cors"`
	WS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"ws"`
}

// EnvPrefix prefixes environment overrides, e.g. COMMUNITY_DATABASE_DSN.
const EnvPrefix = "COMMUNITY"

var defaultPaths = []string{"./backend/config", "./config", "."}

func setDefaults(v *viper.Viper) {
	v.SetDefault("running.port", 3003)
	v.SetDefault("running.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxOpenConns", 50)
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.connMaxLifetime", time.Hour)
	v.SetDefault("database.autoMigrate", false)
	v.SetDefault("redis.addrs", []string{"127.0.0.1:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "community.interactions")
	v.SetDefault("kafka.groupId", "community-notifications")
	v.SetDefault("kafka.queueSize", 10_000)
	v.SetDefault("kafka.workers", 4)
	v.SetDefault("kafka.maxRetry", 3)
	v.SetDefault("auth.path", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("cache.counterTTL", 24*time.Hour)
	v.SetDefault("cache.counterJitter", time.Hour)
	v.SetDefault("cache.catalogTTL", time.Hour)
	v.SetDefault("cache.userStoreTTL", 5*time.Minute)
	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowOrigins", []string{})
	v.SetDefault("ws.allowedOrigins", []string{})
}

// Load reads config.yaml from the first of paths that has one (or from
// ./backend/config, ./config and . when none are given), then applies
// COMMUNITY_* environment overrides. A missing file is not an error.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = defaultPaths
	}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Running.Port <= 0 || c.Running.Port > 65535 {
		return fmt.Errorf("running.port %d out of range", c.Running.Port)
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver %q: want mysql or postgres", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if len(c.Redis.Addrs) == 0 {
		return errors.New("redis.addrs is required")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when brokers are set")
	}
	return nil
}
