package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	LogLevel string `mapstructure:"log_level"`
}

type NATSConfig struct {
	Enabled       bool         `mapstructure:"enabled"`
	Host          string       `mapstructure:"host"`
	Port          int          `mapstructure:"port"`
	SubjectPrefix string       `mapstructure:"subject_prefix"`
	Stream        StreamConfig `mapstructure:"stream"`
}

type StreamConfig struct {
	Name     string   `mapstructure:"name"`
	Subjects []string `mapstructure:"subjects"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig configures the Basic-Auth gate. CredentialsFile, when set,
// overrides Username, Password and the server host/port (see
// LoadCredentialsFile).
type AuthConfig struct {
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Realm           string `mapstructure:"realm"`
	Force           bool   `mapstructure:"force"`
	RateLimit       int    `mapstructure:"rate_limit"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type APIConfig struct {
	UnknownFields string `mapstructure:"unknown_fields"`
	PageSize      int    `mapstructure:"page_size"`
	MaxPageSize   int    `mapstructure:"max_page_size"`
}

type AdminConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	PageSize int  `mapstructure:"page_size"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	API      APIConfig      `mapstructure:"api"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	UnknownFieldsReject = "reject"
	UnknownFieldsIgnore = "ignore"
)

// LoadConfig reads the YAML config at path, or config.yaml from the working
// directory when path is empty. A missing default file is not an error.
// Environment variables prefixed with SPELLBREAK_ override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("spellbreak")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Auth.CredentialsFile != "" {
		if err := cfg.applyCredentialsFile(cfg.Auth.CredentialsFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "spellbreak.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("auth.username", "tito")
	v.SetDefault("auth.password", "tito")
	v.SetDefault("auth.realm", "spellbreak")
	v.SetDefault("auth.force", false)
	v.SetDefault("auth.rate_limit", 20)
	v.SetDefault("auth.credentials_file", "")

	v.SetDefault("api.unknown_fields", UnknownFieldsReject)
	v.SetDefault("api.page_size", 30)
	v.SetDefault("api.max_page_size", 100)

	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.page_size", 50)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.subject_prefix", "spellbreak")
	v.SetDefault("nats.stream.name", "SPELLBREAK")
	v.SetDefault("nats.stream.subjects", []string{"spellbreak.>"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (cfg *Config) Validate() error {
	switch cfg.Database.Driver {
	case DriverSQLite:
		if cfg.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if cfg.Database.DBName == "" {
			return errors.New("database.dbname is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", cfg.Database.Driver)
	}

	switch cfg.API.UnknownFields {
	case UnknownFieldsReject, UnknownFieldsIgnore:
	default:
		return fmt.Errorf("api.unknown_fields must be %q or %q, got %q",
			UnknownFieldsReject, UnknownFieldsIgnore, cfg.API.UnknownFields)
	}

	if cfg.API.PageSize <= 0 || cfg.API.MaxPageSize <= 0 {
		return errors.New("api.page_size and api.max_page_size must be positive")
	}
	if cfg.API.PageSize > cfg.API.MaxPageSize {
		return errors.New("api.page_size must not exceed api.max_page_size")
	}
	if cfg.Admin.PageSize <= 0 {
		return errors.New("admin.page_size must be positive")
	}

	if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
		return errors.New("auth.username and auth.password are required")
	}

	return nil
}
