// Package config loads pixelink configuration from a YAML file with
// PIXELINK_* environment overrides layered on top. Each concern keeps its
// section struct in its own file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all pixelink configuration.
type Config struct {
	// LLM fallback brain
	LLM LLMConfig `yaml:"llm"`

	// Hybrid NLU routing
	NLU NLUConfig `yaml:"nlu"`

	// Plan execution
	Execution ExecutionConfig `yaml:"execution"`

	// Safety profile and kill switch
	Safety SafetyConfig `yaml:"safety"`

	// Credential vault
	Vault VaultConfig `yaml:"vault"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LLM:       defaultLLMConfig(),
		NLU:       defaultNLUConfig(),
		Execution: defaultExecutionConfig(),
		Safety:    defaultSafetyConfig(),
		Vault:     defaultVaultConfig(),
	}
}

// Load reads the config file at path (if it exists), applies environment
// overrides, and validates the result. A missing file is not an error; the
// defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults apply.
		default:
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and clamps bounded values.
func (c *Config) Validate() error {
	if c.NLU.ConfidenceThreshold < 0 || c.NLU.ConfidenceThreshold > 1 {
		return fmt.Errorf("nlu.confidence_threshold must be in [0,1], got %v", c.NLU.ConfidenceThreshold)
	}
	if c.NLU.Workers < 1 {
		c.NLU.Workers = 1
	}
	if c.NLU.CacheSize < 1 {
		c.NLU.CacheSize = 1
	}
	c.Execution.Speed = ClampSpeed(c.Execution.Speed)
	return nil
}

// applyEnvOverrides layers PIXELINK_* environment variables over the file
// values. Unset variables leave the existing value untouched.
func (c *Config) applyEnvOverrides() {
	if key := firstEnv("PIXELINK_GEMINI_KEY", "GEMINI_API_KEY", "GEMINI"); key != "" {
		c.LLM.APIKey = key
	}
	if v := os.Getenv("PIXELINK_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v, ok := envBool("PIXELINK_ENABLE_HYBRID_NLU"); ok {
		c.NLU.Enabled = v
	}
	if v, ok := envFloat("PIXELINK_NLU_CONFIDENCE_THRESHOLD"); ok {
		c.NLU.ConfidenceThreshold = v
	}
	if v, ok := envInt("PIXELINK_LLM_TIMEOUT_MS_TEXT"); ok {
		c.NLU.TimeoutTextMs = v
	}
	if v, ok := envInt("PIXELINK_LLM_TIMEOUT_MS_VOICE"); ok {
		c.NLU.TimeoutVoiceMs = v
	}
	if v, ok := envBool("PIXELINK_DRY_RUN"); ok {
		c.Execution.DryRun = v
	}
	if v, ok := envFloat("PIXELINK_SPEED"); ok {
		c.Execution.Speed = v
	}
	if v, ok := envBool("PIXELINK_ENABLE_KILL_SWITCH"); ok {
		c.Safety.EnableKillSwitch = v
	}
	if v := os.Getenv("PIXELINK_VAULT_PATH"); v != "" {
		c.Vault.Path = v
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	default:
		return false, true
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
