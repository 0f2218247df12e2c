package config

// LLMConfig configures the Gemini fallback brain.
type LLMConfig struct {
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Temperature     float64 `yaml:"temperature"`
}

func defaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:           "gemini-2.0-flash",
		MaxOutputTokens: 256,
		Temperature:     0.1,
	}
}
