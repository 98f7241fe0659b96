// Package config loads service settings from defaults, an optional TOML or
// YAML file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/mcuadros/go-defaults"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the recognizer service.
type Config struct {
	HTTPAddr        string        `toml:"http_addr" yaml:"http_addr" default:":5000"`
	GRPCAddr        string        `toml:"grpc_addr" yaml:"grpc_addr" default:":50051"`
	MaxUploadSize   int64         `toml:"max_upload_size" yaml:"max_upload_size" default:"10485760"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout" default:"15s"`

	Model ModelConfig `toml:"model" yaml:"model"`
	Cache CacheConfig `toml:"cache" yaml:"cache"`
	Log   LogConfig   `toml:"log" yaml:"log"`

	DatabaseDSN string `toml:"database_dsn" yaml:"database_dsn"`
}

// ModelConfig locates the exported classifier and the ONNX Runtime library.
type ModelConfig struct {
	Path        string `toml:"path" yaml:"path" default:"models/letter_model.onnx"`
	LibraryPath string `toml:"library_path" yaml:"library_path"`
	InputName   string `toml:"input_name" yaml:"input_name"`
	OutputName  string `toml:"output_name" yaml:"output_name"`
}

// CacheConfig configures the optional Redis result cache.
type CacheConfig struct {
	RedisAddr string        `toml:"redis_addr" yaml:"redis_addr"`
	TTL       time.Duration `toml:"ttl" yaml:"ttl" default:"10m"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level        string        `toml:"level" yaml:"level" default:"info"`
	File         string        `toml:"file" yaml:"file"`
	MaxAge       time.Duration `toml:"max_age" yaml:"max_age" default:"168h"`
	RotationTime time.Duration `toml:"rotation_time" yaml:"rotation_time" default:"24h"`
}

// Load builds a Config. path may be empty; otherwise its extension selects
// the decoder. A .env file in the working directory is honoured if present.
// Empty environment variables are ignored; GRPC_ADDR=off disables gRPC.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	defaults.SetDefaults(cfg)

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GRPCEnabled reports whether the gRPC listener should be started.
func (c *Config) GRPCEnabled() bool {
	return c.GRPCAddr != "" && c.GRPCAddr != "off"
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model path must not be empty")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max_upload_size must be positive, got %d", c.MaxUploadSize)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"HTTP_ADDR":         &cfg.HTTPAddr,
		"GRPC_ADDR":         &cfg.GRPCAddr,
		"MODEL_PATH":        &cfg.Model.Path,
		"ONNXRUNTIME_LIB":   &cfg.Model.LibraryPath,
		"MODEL_INPUT_NAME":  &cfg.Model.InputName,
		"MODEL_OUTPUT_NAME": &cfg.Model.OutputName,
		"REDIS_ADDR":        &cfg.Cache.RedisAddr,
		"DATABASE_DSN":      &cfg.DatabaseDSN,
		"LOG_LEVEL":         &cfg.Log.Level,
		"LOG_FILE":          &cfg.Log.File,
	}
	for key, dst := range strs {
		if value, ok := lookup(key); ok && value != "" {
			*dst = value
		}
	}

	if value, ok := lookup("PORT"); ok && value != "" {
		cfg.HTTPAddr = ":" + value
	}

	if value, ok := lookup("MAX_UPLOAD_SIZE"); ok && value != "" {
		size, err := cast.ToInt64E(value)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_SIZE: %w", err)
		}
		cfg.MaxUploadSize = size
	}

	durations := map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT":  &cfg.ShutdownTimeout,
		"CACHE_TTL":         &cfg.Cache.TTL,
		"LOG_MAX_AGE":       &cfg.Log.MaxAge,
		"LOG_ROTATION_TIME": &cfg.Log.RotationTime,
	}
	for key, dst := range durations {
		value, ok := lookup(key)
		if !ok || value == "" {
			continue
		}
		d, err := cast.ToDurationE(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}
