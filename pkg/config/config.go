package config

import (
	"os"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config holds all runtime configuration. Values are resolved in order:
// defaults, then the yaml file pointed at by CONFIG_FILE, then environment
// variables (DATABASE_FILE_PATH, SERVER_PORT, ...).
type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"-"`
	DatabaseConnectRetryCount int           `koanf:"-"`
	DatabaseConnectRetryDelay time.Duration `koanf:"-"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries"`
	Environment               string        `koanf:"environment"`
	Hostname                  string        `koanf:"-"`
	JWTSecret                 string        `koanf:"jwt_secret"`
	MaxEpisodeActions         int           `koanf:"max_episode_actions"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
}

const configFileENV = "CONFIG_FILE"

func defaults(hostname string) *Config {
	return &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		Environment:               "production",
		Hostname:                  hostname,
		MaxEpisodeActions:         1000,
		ServerHost:                "0.0.0.0",
		ServerPort:                8000,
	}
}

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := defaults(hostname)

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = "/config/mygpo.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, "config file")
		}
	}

	// Environment variables override file values. DATABASE_FILE_PATH maps to
	// the database_file_path key, etc.
	err = k.Load(env.Provider("", ".", strings.ToLower), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	missing := []string{}
	if cfg.DatabaseFilePath == "" {
		missing = append(missing, "DatabaseFilePath")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWTSecret")
	}
	if len(missing) > 0 {
		parts := make([]string, len(missing))
		for i, name := range missing {
			key := toSnakeCase(name)
			parts[i] = strings.ToUpper(key) + " (" + key + ")"
		}
		return nil, errors.Errorf("missing required config: %s", strings.Join(parts, ", "))
	}

	return cfg, nil
}

// NewForTest returns a config suitable for tests: in-memory database, loopback
// server host, and the default since-query cap.
func NewForTest() *Config {
	cfg := defaults("localhost")
	cfg.DatabaseFilePath = ":memory:"
	cfg.Environment = "test"
	cfg.JWTSecret = "test-secret-key"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	return cfg
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
