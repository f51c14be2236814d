package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/idilsaglam/tada/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	BackendHTTP = "http"
	BackendFile = "file"

	dirName  = ".tada"
	fileName = "config.yaml"
)

// Config is the client configuration, read from ~/.tada/config.yaml and
// overridden by TADA_* / LOG_* environment variables.
type Config struct {
	Backend     string         `yaml:"backend" validate:"oneof=http file"`
	BaseURL     string         `yaml:"base_url" validate:"omitempty,url"`
	DataFile    string         `yaml:"data_file"`
	UserID      int            `yaml:"user_id" validate:"gt=0"`
	Timeout     time.Duration  `yaml:"timeout" validate:"gte=0"`
	ErrorWindow time.Duration  `yaml:"error_window" validate:"gte=0"`
	BulkLimit   int            `yaml:"bulk_limit" validate:"gte=1,lte=64"`
	Theme       string         `yaml:"theme" validate:"oneof=classic neon mono"`
	Log         logging.Config `yaml:"log"`
}

// Dir is ~/.tada, shared with the credentials file.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DefaultPath is ~/.tada/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Default returns a config that points at the public students API.
func Default(dir string) Config {
	return Config{
		Backend:     BackendHTTP,
		BaseURL:     "https://mate.academy/students-api",
		DataFile:    filepath.Join(dir, "todos.json"),
		UserID:      1,
		Timeout:     10 * time.Second,
		ErrorWindow: 3 * time.Second,
		BulkLimit:   8,
		Theme:       "classic",
		Log:         logging.DefaultConfig(dir),
	}
}

// Load reads path, creating it with defaults on first run, then applies
// environment overrides and validates. An empty path means DefaultPath.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	cfg := Default(filepath.Dir(path))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path, cfg); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and the settings the chosen backend needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	switch c.Backend {
	case BackendHTTP:
		if c.BaseURL == "" {
			return errors.New("invalid config: base_url is required for the http backend")
		}
	case BackendFile:
		if c.DataFile == "" {
			return errors.New("invalid config: data_file is required for the file backend")
		}
	}
	return nil
}

func applyEnv(c *Config) {
	c.Backend = getEnv("TADA_BACKEND", c.Backend)
	c.BaseURL = getEnv("TADA_API_URL", c.BaseURL)
	c.DataFile = getEnv("TADA_DATA_FILE", c.DataFile)
	c.UserID = getEnvInt("TADA_USER_ID", c.UserID)
	c.Timeout = getEnvDuration("TADA_TIMEOUT", c.Timeout)
	c.Theme = getEnv("TADA_THEME", c.Theme)

	c.Log.Enabled = getEnvBool("LOG_FILE_ENABLED", c.Log.Enabled)
	c.Log.FilePath = getEnv("LOG_FILE_PATH", c.Log.FilePath)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.JSONFormat = getEnvBool("LOG_JSON_FORMAT", c.Log.JSONFormat)
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
