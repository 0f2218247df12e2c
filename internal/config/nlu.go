package config

import "time"

// NLUConfig configures the hybrid intent router: when the rule parser result
// is insufficient, the LLM fallback is consulted within a bounded budget.
type NLUConfig struct {
	// Enabled toggles the LLM fallback entirely; rules always run.
	Enabled bool `yaml:"enabled"`

	// ConfidenceThreshold below which a rule result triggers the fallback.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// Timeout budgets per input source. Voice gets more headroom because
	// the user is already waiting on transcription latency.
	TimeoutTextMs  int `yaml:"timeout_ms_text"`
	TimeoutVoiceMs int `yaml:"timeout_ms_voice"`

	// Result cache bounds.
	CacheSize       int `yaml:"cache_size"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`

	// Workers is the fixed size of the fallback worker pool.
	Workers int `yaml:"workers"`
}

func defaultNLUConfig() NLUConfig {
	return NLUConfig{
		Enabled:             true,
		ConfidenceThreshold: 0.78,
		TimeoutTextMs:       450,
		TimeoutVoiceMs:      700,
		CacheSize:           128,
		CacheTTLMinutes:     10,
		Workers:             2,
	}
}

// Timeout returns the fallback budget for the given input source.
func (c NLUConfig) Timeout(source string) time.Duration {
	if source == "voice" {
		return time.Duration(c.TimeoutVoiceMs) * time.Millisecond
	}
	return time.Duration(c.TimeoutTextMs) * time.Millisecond
}

// CacheTTL returns the result cache entry lifetime.
func (c NLUConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}
