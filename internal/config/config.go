package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

// Config is the project configuration document (.ddd/config.json).
// It is read fresh for every run so edits apply without restarting the daemon.
type Config struct {
	Targets map[string]*Target `json:"targets"`
}

// Target is one named build configuration.
type Target struct {
	Build        *StageSpec `json:"build"`
	Verify       *StageSpec `json:"verify,omitempty"`
	SentinelFile string     `json:"sentinel_file,omitempty"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read configuration").
			WithContext("path", path).
			Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		if ce, ok := ferrors.AsClassified(err); ok {
			return nil, ce.WithContext("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ferrors.ConfigError("configuration file is empty").Build()
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse configuration").
			UserAction().
			Build()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural requirements that apply to every target.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ferrors.ConfigError("no targets defined").Build()
	}
	for _, name := range c.TargetNames() {
		t := c.Targets[name]
		if t == nil {
			return ferrors.ConfigError("target is null").WithContext("target", name).Build()
		}
		if t.Build == nil {
			return ferrors.ConfigError("target has no build stage").WithContext("target", name).Build()
		}
	}
	return nil
}

// Target returns the named target or a not-found error.
func (c *Config) Target(name string) (*Target, error) {
	t, ok := c.Targets[name]
	if !ok || t == nil {
		return nil, ferrors.ConfigError(fmt.Sprintf("target %q not defined", name)).
			WithContext("target", name).
			WithContext("available", c.TargetNames()).
			Build()
	}
	return t, nil
}

// TargetNames returns the configured target names in sorted order.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
