// Package config loads the s3stream command configuration from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// Prefix is prepended to every environment variable name.
const Prefix = "S3STREAM"

// Supported backends.
const (
	BackendAWS   = "aws"
	BackendMinio = "minio"
)

// Config is the s3stream command configuration.
type Config struct {
	Backend  string `envconfig:"BACKEND" default:"aws"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	PartSize int    `envconfig:"PART_SIZE" default:"10485760"` // 10MB

	// AWS S3, or any endpoint speaking its API
	Region     string `envconfig:"REGION"`
	Endpoint   string `envconfig:"ENDPOINT"`
	PathStyle  bool   `envconfig:"PATH_STYLE" default:"false"`
	MaxRetries int    `envconfig:"MAX_RETRIES" default:"3"`

	Minio MinioConfig
}

// MinioConfig is read from S3STREAM_MINIO_* variables.
type MinioConfig struct {
	Endpoint  string `envconfig:"ENDPOINT"`
	AccessKey string `envconfig:"ACCESS_KEY"`
	SecretKey string `envconfig:"SECRET_KEY"`
	UseSSL    bool   `envconfig:"USE_SSL" default:"true"`
	Region    string `envconfig:"REGION"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the configuration from the environment without validating it,
// for callers that override settings before calling Validate.
func Read() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.NewError("loadConfig", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
	}
	cfg.Backend = strings.ToLower(cfg.Backend)
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var message string
	switch {
	case c.Backend != BackendAWS && c.Backend != BackendMinio:
		message = fmt.Sprintf("unknown backend %q, want %q or %q", c.Backend, BackendAWS, BackendMinio)
	case c.PartSize <= 0 || int64(c.PartSize) > s3types.MaxPartSize:
		message = fmt.Sprintf("part size %d is out of range", c.PartSize)
	case c.Backend == BackendMinio && c.Minio.Endpoint == "":
		message = Prefix + "_MINIO_ENDPOINT is required for the minio backend"
	default:
		if _, err := c.Level(); err != nil {
			return err
		}
		return nil
	}
	return errors.NewError("validateConfig", errors.ErrInvalidInput).WithMessage(message)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.NewError("validateConfig", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
	}
	return level, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
