package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Output:         "console",
		ValidateSchema: boolPtr(true),
		HookTimeout:    60000, // 1 minute
		WatchInterval:  500,   // milliseconds between watch re-runs
		Bail:           boolPtr(false),
		Verbose:        boolPtr(false),
		NoColor:        boolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Recording == defaults.Recording &&
		c.Store == defaults.Store &&
		c.Output == defaults.Output &&
		c.OutputFile == defaults.OutputFile &&
		c.Tags == defaults.Tags &&
		c.HookTimeout == defaults.HookTimeout &&
		c.WatchInterval == defaults.WatchInterval &&
		len(c.Variables) == 0 &&
		c.GetValidateSchema() == defaults.GetValidateSchema() &&
		c.GetBail() == defaults.GetBail() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
