package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/syssam/concerto/dialect"
)

// Config is the CLI configuration, read from concerto.yaml, CONCERTO_*
// environment variables and command flags.
type Config struct {
	Models   ModelsConfig   `mapstructure:"models"`
	Generate GenerateConfig `mapstructure:"generate"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
}

// ModelsConfig lists where model files are read from.
type ModelsConfig struct {
	Dirs []string `mapstructure:"dirs"`
}

// GenerateConfig configures the generate command.
type GenerateConfig struct {
	Target    string   `mapstructure:"target"`
	Languages []string `mapstructure:"languages"`
	Package   string   `mapstructure:"package"`
	Header    string   `mapstructure:"header"`
	Workers   int      `mapstructure:"workers"`
}

// StoreConfig selects the archive database.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// SetDefaults installs the default configuration on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("models.dirs", []string{"models"})
	v.SetDefault("generate.target", "generated")
	v.SetDefault("generate.languages", []string{"golang"})
	v.SetDefault("generate.package", "")
	v.SetDefault("generate.header", "Code generated by concerto. DO NOT EDIT.")
	v.SetDefault("generate.workers", 0)
	v.SetDefault("store.driver", dialect.SQLite)
	v.SetDefault("store.dsn", "file:concerto.db?_pragma=foreign_keys(1)")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.json", false)
}

// LoadConfig reads the configuration into a Config. An explicit file must
// exist; otherwise concerto.yaml is looked up in the working directory and
// in $HOME/.concerto, and a missing file is not an error.
func LoadConfig(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("CONCERTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("concerto")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".concerto"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := dialect.Check(cfg.Store.Driver); err != nil {
		return nil, errors.Wrap(err, "store.driver")
	}
	return &cfg, nil
}
