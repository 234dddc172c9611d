// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Launcher LauncherConfig `json:"launcher" yaml:"launcher"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// LauncherConfig holds process launcher configuration.
type LauncherConfig struct {
	// Debug forwards everything launched processes produce to the trace
	// sink, in addition to tracing each launch.
	Debug bool `json:"debug" yaml:"debug"`
	// PollIntervalMS bounds the wait loop for process handles without a
	// native blocking wait.
	PollIntervalMS int `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	// GracePeriodSecs is how long termination waits after SIGTERM before
	// force-killing.
	GracePeriodSecs int    `json:"grace_period_secs" yaml:"grace_period_secs"`
	RegistryPath    string `json:"registry_path" yaml:"registry_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	lanzaderaDir := filepath.Join(home, ".lanzadera")

	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8766,
		},
		Launcher: LauncherConfig{
			PollIntervalMS:  50,
			GracePeriodSecs: 5,
			RegistryPath:    filepath.Join(lanzaderaDir, "launches.json"),
		},
	}
}

// Load loads configuration from a file (supports JSON and YAML).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	baseDir := ""

	if path == "" {
		home, _ := os.UserHomeDir()
		yamlPath := filepath.Join(home, ".lanzadera", "config.yaml")
		jsonPath := filepath.Join(home, ".lanzadera", "config.json")

		if _, err := os.Stat(yamlPath); err == nil {
			path = yamlPath
			baseDir = filepath.Dir(path)
		} else if _, err := os.Stat(jsonPath); err == nil {
			path = jsonPath
			baseDir = filepath.Dir(path)
		} else {
			return cfg, nil
		}
	} else {
		baseDir = filepath.Dir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	isYAML := strings.HasSuffix(strings.ToLower(path), ".yaml") || strings.HasSuffix(strings.ToLower(path), ".yml")

	if isYAML {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	// Expand ~ and resolve relative paths against the config file directory.
	cfg.Launcher.RegistryPath = resolvePath(cfg.Launcher.RegistryPath, baseDir)

	return cfg, nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".lanzadera", "config.json")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// expandHome expands ~ to home directory in paths.
func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~\\") {
		home, _ := os.UserHomeDir()
		rest := path[2:]
		return filepath.Join(home, rest)
	}
	// We intentionally don't expand "~user/..." forms.
	return path
}

// resolvePath expands ~ and resolves relative paths against baseDir.
// If baseDir is empty, relative paths are returned unchanged.
func resolvePath(value, baseDir string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	value = expandHome(value)
	if filepath.IsAbs(value) || baseDir == "" {
		return value
	}
	return filepath.Clean(filepath.Join(baseDir, value))
}
