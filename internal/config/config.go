// Package config loads logweave settings from an optional YAML file and
// LOGWEAVE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cdtdelta/logweave/internal/structure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override,
// e.g. LOGWEAVE_DATABASE_DSN.
const EnvPrefix = "LOGWEAVE"

// Config holds every setting.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Search    SearchConfig    `mapstructure:"search"`
	Structure StructureConfig `mapstructure:"structure"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// SearchConfig holds the defaults for search options not given explicitly.
type SearchConfig struct {
	CaseSensitive bool `mapstructure:"case_sensitive"`
	WholeWord     bool `mapstructure:"whole_word"`
}

type StructureConfig struct {
	// Link is the link given to the previous entry when a new one is added.
	Link string `mapstructure:"link"`
}

// DefaultLink returns the parsed structure link.
func (c *Config) DefaultLink() structure.Link {
	l, _ := structure.ParseLink(c.Structure.Link)
	return l
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("search.case_sensitive", false)
	v.SetDefault("search.whole_word", false)
	v.SetDefault("structure.link", string(structure.LinkNone))
}

// Load reads the configuration. When path is empty, .logweave.yaml is
// looked up in the home directory and then the working directory; a
// missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".logweave")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		dsn, err := defaultSQLitePath()
		if err != nil {
			return nil, err
		}
		cfg.Database.DSN = dsn
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn: required for postgres")
	}
	l, err := structure.ParseLink(c.Structure.Link)
	if err != nil {
		return fmt.Errorf("structure.link: %w", err)
	}
	if l == structure.Unlinked {
		return fmt.Errorf("structure.link: must be None, Min or Max")
	}
	return nil
}

// defaultSQLitePath returns logweave.db in the user config directory,
// creating the directory if needed.
func defaultSQLitePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	dir = filepath.Join(dir, "logweave")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return filepath.Join(dir, "logweave.db"), nil
}
