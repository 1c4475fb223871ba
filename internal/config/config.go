// Package config handles global configuration for the qembed CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in ~/.config/qembed/config.yml.
// Every field is optional; flags and environment variables take precedence.
type Config struct {
	DefaultModel   string `yaml:"default_model,omitempty"`   // Encoder model identifier
	ModelsDir      string `yaml:"models_dir,omitempty"`      // Root of installed models
	OnnxruntimeLib string `yaml:"onnxruntime_lib,omitempty"` // Path to the onnxruntime shared library
	OllamaURL      string `yaml:"ollama_url,omitempty"`      // Remote backend endpoint
	OllamaModel    string `yaml:"ollama_model,omitempty"`    // Remote backend model
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "qembed"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
)

// cache holds the loaded config for the lifetime of the process.
var cache *Config

// Path returns the path to the global config file. Respects
// XDG_CONFIG_HOME, defaults to ~/.config/qembed/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load reads the global configuration file. Returns an empty config (not an
// error) if the file doesn't exist.
func Load() (*Config, error) {
	if cache != nil {
		return cache, nil
	}

	path := Path()
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ModelsDir != "" {
		cfg.ModelsDir = ExpandTilde(cfg.ModelsDir)
	}
	if cfg.OnnxruntimeLib != "" {
		cfg.OnnxruntimeLib = ExpandTilde(cfg.OnnxruntimeLib)
	}

	cache = &cfg
	return &cfg, nil
}

// ResetCache clears the cached global config. Useful for testing.
func ResetCache() {
	cache = nil
}

// ExpandTilde expands a leading ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandTilde(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
