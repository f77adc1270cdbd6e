// Package config loads modelerd settings from YAML with environment overrides.
//
// Precedence, lowest first: env-default tags, the YAML file, a local .env
// file, the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/filestore"
	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/validate"
)

// Output formats accepted by the generate command.
const (
	FormatMermaid = "mermaid"
	FormatJSON    = "json"
)

// Config holds all configuration for modelerd.
type Config struct {
	Log      logger.Config    `yaml:"log"`
	Metadata MetadataConfig   `yaml:"metadata"`
	Database database.Config  `yaml:"database"`
	Output   OutputConfig     `yaml:"output"`
	Publish  filestore.Config `yaml:"publish"`
	Server   ServerConfig     `yaml:"server"`
}

// MetadataConfig points at the model manifest.
type MetadataConfig struct {
	Manifest string `yaml:"manifest" env:"MODELERD_MANIFEST"`
}

// OutputConfig controls where generate writes its result.
type OutputConfig struct {
	// Path is the destination file. Empty or "-" means stdout.
	Path   string `yaml:"path" env:"MODELERD_OUTPUT_PATH"`
	Format string `yaml:"format" env:"MODELERD_OUTPUT_FORMAT" env-default:"mermaid" validate:"oneof=mermaid json"`
}

// ServerConfig holds the HTTP listener settings for serve.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"MODELERD_SERVER_ADDR" env-default:":8080" validate:"required"`
}

// Load reads path (optional) and applies environment overrides. A .env file
// in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read .env", err)
	}

	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("config file %s", path), err)
		}
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to read %s", path), err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the `validate` tags of every section.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// Stdout reports whether output goes to standard output.
func (o OutputConfig) Stdout() bool {
	return o.Path == "" || o.Path == "-"
}
