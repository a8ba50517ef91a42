// Package config loads tasklet settings from defaults, an optional YAML
// file, a .env file, environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fentz26/tasklet/internal/snapshot"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TASKLET_STORAGE_DRIVER.
const EnvPrefix = "TASKLET"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Config is the root configuration.
type Config struct {
	DataDir string        `json:"data_dir" mapstructure:"data_dir" yaml:"data_dir"`
	Storage StorageConfig `json:"storage"  mapstructure:"storage"  yaml:"storage"`
	Log     LogConfig     `json:"log"      mapstructure:"log"      yaml:"log"`
	Export  ExportConfig  `json:"export"   mapstructure:"export"   yaml:"export"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`
	Path   string `json:"path"   mapstructure:"path"   yaml:"path"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `json:"level"  mapstructure:"level"  yaml:"level"`
	Format string `json:"format" mapstructure:"format" yaml:"format"`
}

// ExportConfig holds defaults for snapshot exports.
type ExportConfig struct {
	Format snapshot.Format `json:"format" mapstructure:"format" yaml:"format"`
	Dir    string          `json:"dir"    mapstructure:"dir"    yaml:"dir"`
}

// DefaultDataDir returns ~/.tasklet, or .tasklet when the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tasklet"
	}
	return filepath.Join(home, ".tasklet")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("export.format", "json")
	v.SetDefault("export.dir", ".")
}

// Load reads configuration into v and returns the validated result.
// A missing config file is not an error; an explicitly named .env file is
// loaded when it exists.
func Load(v *viper.Viper, path, envFile string) (Config, error) {
	if envFile != "" {
		if err := loadEnvFile(envFile); err != nil {
			return Config{}, err
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := ValidateSettings(v.AllSettings()); err != nil {
		return Config{}, err
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Export.Dir = expandHome(cfg.Export.Dir)
	return cfg, nil
}

// StoragePath returns the configured storage location, falling back to a
// driver specific file inside the data directory.
func (c Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Driver == DriverFile {
		return filepath.Join(c.DataDir, "tasks.json")
	}
	return filepath.Join(c.DataDir, "tasklet.db")
}

// LogPath is where the TUI writes logs while it owns the terminal.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "tasklet.log")
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
