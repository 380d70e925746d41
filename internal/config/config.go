// Package config loads macclient settings from defaults, a YAML config file, .env files
// and MAC_* environment variables, in increasing order of precedence. Command-line
// tokens are applied later by the dispatcher and override all of these.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"macclient/internal/macservice"
)

// EnvPrefix is the prefix of environment variables read by macclient.
const EnvPrefix = "MAC"

// Config holds the effective settings.
type Config struct {
	URL               string        `mapstructure:"url" yaml:"url"`
	Proxy             string        `mapstructure:"proxy" yaml:"proxy"`
	HLA               string        `mapstructure:"hla" yaml:"hla"`
	Mode              string        `mapstructure:"mode" yaml:"mode"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MinTypingLength   int           `mapstructure:"min_typing_length" yaml:"min_typing_length"`
	HeartbeatInterval int           `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	Theme             string        `mapstructure:"theme" yaml:"theme"`
	Color             string        `mapstructure:"color" yaml:"color"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile           string        `mapstructure:"log_file" yaml:"log_file"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"url":                macservice.DefaultBaseURL,
		"proxy":              "",
		"hla":                "",
		"mode":               "expand",
		"timeout":            macservice.DefaultTimeout,
		"min_typing_length":  16,
		"heartbeat_interval": 200,
		"theme":              "default",
		"color":              "auto",
		"log_level":          "info",
		"log_file":           "",
	}
}

// Paths locates the configuration sources. Empty fields use the user's config
// directory and the working directory.
type Paths struct {
	ConfigDir string
	WorkDir   string
}

// DefaultPaths returns ~/.config/macclient (or the platform equivalent) and the
// current working directory.
func DefaultPaths() Paths {
	var paths Paths
	if dir, err := os.UserConfigDir(); err == nil {
		paths.ConfigDir = filepath.Join(dir, "macclient")
	}
	if dir, err := os.Getwd(); err == nil {
		paths.WorkDir = dir
	}
	return paths
}

// Load reads every configuration source and returns the validated result.
func Load(paths Paths) (*Config, error) {
	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if paths.ConfigDir != "" {
		if err := readConfigFile(v, filepath.Join(paths.ConfigDir, "config.yaml")); err != nil {
			return nil, err
		}
	}

	dotEnv, err := readDotEnvFiles(
		filepath.Join(paths.ConfigDir, ".env"),
		filepath.Join(paths.WorkDir, ".env"),
	)
	if err != nil {
		return nil, err
	}
	for key, value := range dotEnv {
		if _, inEnv := os.LookupEnv(key); inEnv {
			continue
		}
		if name, ok := settingName(key); ok {
			v.Set(name, value)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the ranges of numeric settings and the mode and color keywords.
func (c *Config) Validate() error {
	switch c.Mode {
	case "expand", "encode", "decode":
	default:
		return fmt.Errorf("invalid mode %q: must be expand, encode or decode", c.Mode)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color %q: must be auto, always or never", c.Color)
	}
	if c.MinTypingLength < 0 {
		return fmt.Errorf("min_typing_length must not be negative, got %d", c.MinTypingLength)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %d", c.HeartbeatInterval)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// readDotEnvFiles merges .env files; later files win. Missing files are skipped.
func readDotEnvFiles(paths ...string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, path := range paths {
		if path == "" || path == ".env" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		for key, value := range values {
			merged[key] = value
		}
	}
	return merged, nil
}

// settingName maps MAC_MIN_TYPING_LENGTH to min_typing_length.
func settingName(envKey string) (string, bool) {
	name, found := strings.CutPrefix(envKey, EnvPrefix+"_")
	if !found || name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}
