package config

// SafetyConfig configures the permission profile and the kill switch.
type SafetyConfig struct {
	// Profile maps action names to enabled/disabled. Only actions explicitly
	// set to true survive as the active allow-list. An empty map leaves the
	// built-in default profile in place.
	Profile map[string]bool `yaml:"profile"`

	EnableKillSwitch bool `yaml:"enable_kill_switch"`
}

func defaultSafetyConfig() SafetyConfig {
	return SafetyConfig{
		EnableKillSwitch: true,
	}
}
