package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/ingenieria/tareas-api/pkg/logger"
)

// Config holds the full application configuration, loaded from defaults
// overridden by environment variables.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"            validate:"gte=1,lte=65535"`
	// AllowedOrigins is the CORS origin allow-list.
	AllowedOrigins []string `koanf:"allowed_origins" validate:"min=1"`
}

type DatabaseConfig struct {
	// ConnString is a full DSN; when set it takes precedence over the
	// discrete fields below.
	ConnString string `koanf:"conn_string"`
	Host       string `koanf:"host"`
	Port       string `koanf:"port"`
	User       string `koanf:"user"`
	Password   string `koanf:"password"`
	DBName     string `koanf:"name"`
	SSLMode    string `koanf:"ssl_mode"`
}

type LogConfig struct {
	Level logger.LogLevel `koanf:"level" validate:"omitempty,oneof=debug info warn error disabled"`
	JSON  bool            `koanf:"json"`
}

// DSN returns the connection string, synthesized from discrete fields when
// no explicit one was provided.
func (d *DatabaseConfig) DSN() string {
	if d.ConnString != "" {
		return d.ConnString
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Port:    "5432",
			SSLMode: "disable",
		},
		Log: LogConfig{
			Level: logger.InfoLevel,
		},
	}
}

// envToPath maps environment variables onto configuration paths. Variables
// absent from this table are ignored.
var envToPath = map[string]string{
	"HOST":            "server.host",
	"PORT":            "server.port",
	"ALLOWED_ORIGINS": "server.allowed_origins",
	"DATABASE_URL":    "database.conn_string",
	"DB_HOST":         "database.host",
	"DB_PORT":         "database.port",
	"DB_USER":         "database.user",
	"DB_PASSWORD":     "database.password",
	"DB_NAME":         "database.name",
	"DB_SSL_MODE":     "database.ssl_mode",
	"LOG_LEVEL":       "log.level",
	"LOG_JSON":        "log.json",
}

// csvPaths lists configuration paths whose env values are comma-separated
// lists.
var csvPaths = map[string]bool{
	"server.allowed_origins": true,
}

// Load builds the configuration from defaults plus environment variables
// and validates it. It fails fast when the store is not configured.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envToPath[key]
			if !ok {
				return "", nil
			}
			if csvPaths[path] {
				return path, splitCSV(value)
			}
			return path, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the store configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Database.ConnString == "" && (c.Database.Host == "" || c.Database.DBName == "") {
		return fmt.Errorf("database not configured: set DATABASE_URL or DB_HOST and DB_NAME")
	}
	return nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
