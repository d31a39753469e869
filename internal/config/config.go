// Package config loads settings from an optional intact.yaml and INTACT_*
// environment variables. Nested keys map to variables by upper-casing and
// replacing dots with underscores: storage.sqlite.path is
// INTACT_STORAGE_SQLITE_PATH.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "INTACT"

// Config holds the configuration of the intact tooling.
type Config struct {
	Storage struct {
		Driver string `mapstructure:"driver"`
		SQLite struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
		Postgres struct {
			DSN        string `mapstructure:"dsn"`
			Migrations bool   `mapstructure:"migrations"`
		} `mapstructure:"postgres"`
	} `mapstructure:"storage"`
	Accession struct {
		Prefix    string `mapstructure:"prefix"`
		BlockSize int    `mapstructure:"block_size"`
	} `mapstructure:"accession"`
	Blob struct {
		Driver string `mapstructure:"driver"`
		FS     struct {
			Root string `mapstructure:"root"`
		} `mapstructure:"fs"`
		S3 struct {
			Bucket    string `mapstructure:"bucket"`
			Region    string `mapstructure:"region"`
			Endpoint  string `mapstructure:"endpoint"`
			PathStyle bool   `mapstructure:"path_style"`
		} `mapstructure:"s3"`
	} `mapstructure:"blob"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Cache struct {
		CvTerms int `mapstructure:"cv_terms"`
	} `mapstructure:"cache"`
	Metrics struct {
		File string `mapstructure:"file"`
	} `mapstructure:"metrics"`
}

var defaults = map[string]any{
	"storage.driver":              "sqlite",
	"storage.sqlite.path":         "intact.db",
	"storage.postgres.dsn":        "",
	"storage.postgres.migrations": true,
	"accession.prefix":            "EBI",
	"accession.block_size":        1,
	"blob.driver":                 "fs",
	"blob.fs.root":                "blobdata",
	"blob.s3.bucket":              "",
	"blob.s3.region":              "us-east-1",
	"blob.s3.endpoint":            "",
	"blob.s3.path_style":          false,
	"log.level":                   "info",
	"log.format":                  "text",
	"cache.cv_terms":              1024,
	"metrics.file":                "",
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file when given, otherwise looks for intact.yaml in the working
// directory and ./config. A missing default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("intact")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values a store cannot start without.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if strings.TrimSpace(c.Accession.Prefix) == "" {
		errs = append(errs, fmt.Errorf("accession prefix is empty"))
	}
	if c.Accession.BlockSize < 1 {
		errs = append(errs, fmt.Errorf("accession block size %d must be positive", c.Accession.BlockSize))
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		errs = append(errs, fmt.Errorf("blob.s3.bucket is required for the s3 driver"))
	}
	return errors.Join(errs...)
}
