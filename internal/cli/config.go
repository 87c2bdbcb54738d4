// Package cli holds configuration and output helpers for the flagship command.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration
type Config struct {
	DefaultEnv   string               `yaml:"default_env"`
	Environments map[string]EnvConfig `yaml:"environments"`
}

// EnvConfig is one flagship server the CLI can talk to
type EnvConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// DefaultConfigPath returns the path to the config file.
// FLAGSHIP_CONFIG overrides the default ~/.flagship/config.yaml.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv("FLAGSHIP_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".flagship", "config.yaml"), nil
}

// LoadConfig reads the config at path. A missing file yields an empty config with
// default env "dev".
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{DefaultEnv: "dev", Environments: make(map[string]EnvConfig)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Environments == nil {
		cfg.Environments = make(map[string]EnvConfig)
	}
	return &cfg, nil
}

// Save writes the config to path with owner-only permissions.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetEnv adds or replaces an environment. The first environment becomes the default.
func (c *Config) SetEnv(name string, env EnvConfig) error {
	if name == "" {
		return fmt.Errorf("environment name cannot be empty")
	}
	if env.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.Environments == nil {
		c.Environments = make(map[string]EnvConfig)
	}
	if len(c.Environments) == 0 {
		c.DefaultEnv = name
	}
	c.Environments[name] = env
	return nil
}

// Use makes name the default environment.
func (c *Config) Use(name string) error {
	if _, ok := c.Environments[name]; !ok {
		return fmt.Errorf("environment '%s' not found in config", name)
	}
	c.DefaultEnv = name
	return nil
}

// EnvNames returns the configured environment names in sorted order.
func (c *Config) EnvNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the server to talk to and the effective environment name.
// Priority: command flags > FLAGSHIP_BASE_URL / FLAGSHIP_API_KEY > config file.
func (c *Config) Resolve(envName, baseURLFlag, apiKeyFlag string) (*EnvConfig, string, error) {
	if envName == "" {
		envName = c.DefaultEnv
	}

	resolved := c.Environments[envName]
	if v := os.Getenv("FLAGSHIP_BASE_URL"); v != "" {
		resolved.BaseURL = v
	}
	if v := os.Getenv("FLAGSHIP_API_KEY"); v != "" {
		resolved.APIKey = v
	}
	if baseURLFlag != "" {
		resolved.BaseURL = baseURLFlag
	}
	if apiKeyFlag != "" {
		resolved.APIKey = apiKeyFlag
	}

	if resolved.BaseURL == "" {
		if _, ok := c.Environments[envName]; !ok {
			return nil, "", fmt.Errorf("environment '%s' not found in config", envName)
		}
		return nil, "", fmt.Errorf("base_url must be configured for environment '%s'", envName)
	}
	return &resolved, envName, nil
}
