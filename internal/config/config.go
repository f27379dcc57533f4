// Package config loads nextstep settings from defaults, YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/nextstep/internal/prompt"
)

const (
	envPrefix = "NEXTSTEP"
	fileName  = "nextstep.yml"
)

// Config holds every setting. Precedence, highest first: environment
// (NEXTSTEP_*), project file (./nextstep.yml), global file
// (~/.config/nextstep/nextstep.yml), defaults.
type Config struct {
	BaseURL      string        `mapstructure:"base_url" json:"base_url" yaml:"base_url"`
	APIKey       string        `mapstructure:"api_key" json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model        string        `mapstructure:"model" json:"model" yaml:"model"`
	GraphModel   string        `mapstructure:"graph_model" json:"graph_model" yaml:"graph_model,omitempty"`
	Language     string        `mapstructure:"language" json:"language" yaml:"language"`
	DataDir      string        `mapstructure:"data_dir" json:"data_dir" yaml:"data_dir"`
	DBPath       string        `mapstructure:"db_path" json:"db_path" yaml:"db_path,omitempty"`
	LogLevel     string        `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	LogMode      string        `mapstructure:"log_mode" json:"log_mode" yaml:"log_mode"`
	GraphUpdates bool          `mapstructure:"graph_updates" json:"graph_updates" yaml:"graph_updates"`
	Events       bool          `mapstructure:"events" json:"events" yaml:"events"`
	Temperature  float64       `mapstructure:"temperature" json:"temperature" yaml:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// Paths locates the config files.
type Paths struct {
	Global  string
	Project string
}

// DefaultPaths returns the global path under the user config dir and the
// project path in the working directory.
func DefaultPaths() Paths {
	return Paths{Global: GlobalPath(), Project: ProjectPath()}
}

func GlobalPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "nextstep", fileName)
}

func ProjectPath() string {
	return fileName
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nextstep")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://api.openai.com/v1")
	v.SetDefault("api_key", "")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("graph_model", "")
	v.SetDefault("language", string(prompt.DefaultLanguage))
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("db_path", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("graph_updates", true)
	v.SetDefault("events", true)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("timeout", 5*time.Minute)
}

// Load reads the configuration from the default locations.
func Load() (*Config, error) {
	return LoadFrom(DefaultPaths())
}

// LoadFrom reads the configuration from the given files; missing files are skipped.
func LoadFrom(p Paths) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, path := range []string{p.Global, p.Project} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDerived()
	return &cfg, nil
}

func (c *Config) applyDerived() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "nextstep.db")
	}
	if c.GraphModel == "" {
		c.GraphModel = c.Model
	}
}

// EventsDir is where the embedded turn log keeps its files.
func (c *Config) EventsDir() string {
	return filepath.Join(c.DataDir, "events")
}

// Validate reports settings that would make a chat turn fail.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, errors.New("base_url is required"))
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if lang := prompt.ParseLanguage(c.Language); lang != prompt.Chinese && lang != prompt.English {
		errs = append(errs, fmt.Errorf("unsupported language %q", c.Language))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0, 2]", c.Temperature))
	}
	return errors.Join(errs...)
}

// WriteGlobal writes cfg to the global config file.
func WriteGlobal(cfg *Config) error {
	return Write(GlobalPath(), cfg)
}

// Write writes cfg as YAML to path, creating parent directories.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, b, 0o600)
}
