package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the spyspec configuration
type Config struct {
	Recording      string            `json:"recording,omitempty" yaml:"recording,omitempty"` // Used when a check file names no recording
	Store          string            `json:"store,omitempty" yaml:"store,omitempty"`         // sqlite:// connection for the recording store
	ValidateSchema *bool             `json:"validateSchema,omitempty" yaml:"validateSchema,omitempty"`
	Variables      map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Output         string            `json:"output,omitempty" yaml:"output,omitempty"` // console, json, junit, tap
	OutputFile     string            `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
	Tags           string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	HookTimeout    int               `json:"hookTimeout,omitempty" yaml:"hookTimeout,omitempty"`     // milliseconds
	WatchInterval  int               `json:"watchInterval,omitempty" yaml:"watchInterval,omitempty"` // milliseconds
	Bail           *bool             `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose        *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor        *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetValidateSchema returns whether recordings are schema-checked, defaulting to true
func (c *Config) GetValidateSchema() bool {
	return getBool(c.ValidateSchema, true)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// VariablesAsAny returns the configured variables in the form the resolver takes.
func (c *Config) VariablesAsAny() map[string]any {
	out := make(map[string]any, len(c.Variables))
	for k, v := range c.Variables {
		out[k] = v
	}
	return out
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".spyspec.json",
	"spyspec.config.json",
	".spyspec.yaml",
	".spyspec.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Recording != "" {
		result.Recording = other.Recording
	}
	if other.Store != "" {
		result.Store = other.Store
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.Tags != "" {
		result.Tags = other.Tags
	}
	if other.HookTimeout > 0 {
		result.HookTimeout = other.HookTimeout
	}
	if other.WatchInterval > 0 {
		result.WatchInterval = other.WatchInterval
	}

	// Boolean flags - only override if explicitly set in other config
	if other.ValidateSchema != nil {
		result.ValidateSchema = other.ValidateSchema
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge variables
	if len(other.Variables) > 0 {
		merged := make(map[string]string, len(result.Variables)+len(other.Variables))
		for k, v := range result.Variables {
			merged[k] = v
		}
		for k, v := range other.Variables {
			merged[k] = v
		}
		result.Variables = merged
	}

	return &result
}

// SaveConfig saves the configuration to a file. The format follows the
// file extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
