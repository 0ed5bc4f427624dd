package internal

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/ytmeta/internal/api"
	"github.com/hbomb79/ytmeta/internal/archive"
	"github.com/hbomb79/ytmeta/internal/ingest"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

// Config is the struct used to contain the
// various user config supplied by file, environment
// variables, or manually inside the code.
type Config struct {
	Ingest     ingest.Config  `yaml:"ingest"`
	Archive    archive.Config `yaml:"archive"`
	RestConfig api.RestConfig `yaml:"api"`
	LogLevel   string         `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// LoadConfig reads the YAML configuration file at the path provided, with
// environment variables taking precedence over the values within. If the
// path is empty, the configuration is read from the environment alone.
//
// Paths in the resulting config have a leading '~' expanded, and the config
// is validated before being returned.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	if configPath != "" {
		path, err := homedir.Expand(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand config path %s: %w", configPath, err)
		}

		if err := cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	if err := config.expandPaths(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks every field of the config against its validation tags.
func (config *Config) Validate() error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	return nil
}

// Redacted returns a copy of the config with any credentials masked.
func (config Config) Redacted() Config {
	config.Archive = config.Archive.Redacted()
	return config
}

// ApplyLogLevel sets the minimum logging level to the configured level.
func (config *Config) ApplyLogLevel() error {
	level, err := logger.ParseLevel(config.LogLevel)
	if err != nil {
		return err
	}

	logger.SetMinLoggingLevel(level.Level())
	return nil
}

func (config *Config) expandPaths() error {
	for _, path := range []*string{&config.Ingest.WorkDir, &config.Ingest.OutputDir} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return fmt.Errorf("failed to expand path %s: %w", *path, err)
		}

		*path = expanded
	}

	return nil
}
