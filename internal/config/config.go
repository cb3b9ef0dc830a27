package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Export   ExportConfig   `mapstructure:"export"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig selects the document store backend. The sqlite driver keeps
// everything in a local file; postgres uses the connection fields.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// SessionConfig 控制编辑会话，例如自动保存间隔。
type SessionConfig struct {
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
}

// AuthConfig 包含会话令牌签名配置。
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// ExportConfig 控制 PDF 导出：在进程内执行还是投递到队列，以及产物写到哪里。
type ExportConfig struct {
	Mode          string        `mapstructure:"mode"`
	Sink          string        `mapstructure:"sink"`
	Dir           string        `mapstructure:"dir"`
	BrowserBin    string        `mapstructure:"browser_bin"`
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
	LinkTTL       time.Duration `mapstructure:"link_ttl"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ExportModeInline = "inline"
	ExportModeQueue  = "queue"

	SinkLocal = "local"
	SinkMinIO = "minio"
)

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "resumebuilder.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumebuilder")
	v.SetDefault("database.user", "resumebuilder")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("session.autosave_interval", 30*time.Second)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resume-exports")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("export.mode", ExportModeInline)
	v.SetDefault("export.sink", SinkLocal)
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.render_timeout", 30*time.Second)
	v.SetDefault("export.link_ttl", 15*time.Minute)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                  "API_PORT",
		"api.allowed_origins":       "API_ALLOWED_ORIGINS",
		"database.driver":           "DATABASE_DRIVER",
		"database.path":             "DATABASE_PATH",
		"database.host":             "DATABASE_HOST",
		"database.port":             "DATABASE_PORT",
		"database.name":             "POSTGRES_DB",
		"database.user":             "POSTGRES_USER",
		"database.password":         "POSTGRES_PASSWORD",
		"database.sslmode":          "DATABASE_SSLMODE",
		"session.autosave_interval": "AUTOSAVE_INTERVAL",
		"auth.token_secret":         "AUTH_TOKEN_SECRET",
		"auth.token_ttl":            "AUTH_TOKEN_TTL",
		"redis.enabled":             "REDIS_ENABLED",
		"redis.host":                "REDIS_HOST",
		"redis.port":                "REDIS_PORT",
		"minio.endpoint":            "MINIO_ENDPOINT",
		"minio.access_key_id":       "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":   "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":             "MINIO_USE_SSL",
		"minio.bucket":              "MINIO_BUCKET",
		"minio.region":              "MINIO_REGION",
		"minio.auto_create_bucket":  "MINIO_AUTO_CREATE_BUCKET",
		"export.mode":               "EXPORT_MODE",
		"export.sink":               "EXPORT_SINK",
		"export.dir":                "EXPORT_DIR",
		"export.browser_bin":        "EXPORT_BROWSER_BIN",
		"export.render_timeout":     "EXPORT_RENDER_TIMEOUT",
		"export.link_ttl":           "EXPORT_LINK_TTL",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Export.Mode = strings.ToLower(strings.TrimSpace(c.Export.Mode))
	c.Export.Sink = strings.ToLower(strings.TrimSpace(c.Export.Sink))
	// 环境变量中的列表以逗号分隔
	if len(c.API.AllowedOrigins) == 1 && strings.Contains(c.API.AllowedOrigins[0], ",") {
		c.API.AllowedOrigins = strings.Split(c.API.AllowedOrigins[0], ",")
	}
	for i, origin := range c.API.AllowedOrigins {
		c.API.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	switch cfg.Database.Driver {
	case DriverSQLite:
		if cfg.Database.Path == "" {
			return errors.New("database path is required for sqlite")
		}
	case DriverPostgres:
		if cfg.Database.Host == "" {
			return errors.New("database host is required")
		}
		if cfg.Database.Port <= 0 {
			return errors.New("database port must be positive")
		}
		if cfg.Database.Name == "" {
			return errors.New("database name is required")
		}
		if cfg.Database.User == "" {
			return errors.New("database user is required")
		}
		if cfg.Database.Password == "" {
			return errors.New("database password is required")
		}
		if cfg.Database.SSLMode == "" {
			return errors.New("database sslmode is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Session.AutosaveInterval <= 0 {
		return errors.New("autosave interval must be positive")
	}
	if cfg.Auth.TokenSecret == "" {
		return errors.New("auth token secret is required")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	switch cfg.Export.Mode {
	case ExportModeInline:
	case ExportModeQueue:
		if !cfg.Redis.Enabled {
			return errors.New("export mode queue requires redis")
		}
	default:
		return fmt.Errorf("unsupported export mode %q", cfg.Export.Mode)
	}
	if cfg.Redis.Enabled {
		if cfg.Redis.Host == "" {
			return errors.New("redis host is required")
		}
		if cfg.Redis.Port <= 0 {
			return errors.New("redis port must be positive")
		}
	}
	switch cfg.Export.Sink {
	case SinkLocal:
		if cfg.Export.Dir == "" {
			return errors.New("export dir is required for the local sink")
		}
	case SinkMinIO:
		if cfg.MinIO.Endpoint == "" {
			return errors.New("minio endpoint is required")
		}
		if cfg.MinIO.AccessKeyID == "" {
			return errors.New("minio access key id is required")
		}
		if cfg.MinIO.SecretAccessKey == "" {
			return errors.New("minio secret access key is required")
		}
		if cfg.MinIO.Bucket == "" {
			return errors.New("minio bucket is required")
		}
	default:
		return fmt.Errorf("unsupported export sink %q", cfg.Export.Sink)
	}
	if cfg.Export.RenderTimeout <= 0 {
		return errors.New("export render timeout must be positive")
	}
	return nil
}
