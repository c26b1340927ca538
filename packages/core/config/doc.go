// Package config handles configuration loading and management for spyspec.
//
// It provides functionality for:
//   - Loading configuration from .spyspec.json, spyspec.config.json or .spyspec.yaml
//   - Default configuration values
//   - Merging file settings with command line overrides
package config
