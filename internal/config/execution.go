package config

import "time"

// Speed multiplier bounds. Values outside this range are clamped so a typo
// in the config cannot make automation unusably slow or dangerously fast.
const (
	MinSpeed = 0.25
	MaxSpeed = 3.0
)

// ExecutionConfig configures plan execution pacing.
type ExecutionConfig struct {
	// DryRun logs steps without dispatching them to the backend.
	DryRun bool `yaml:"dry_run"`

	// Speed scales the inter-step delay; higher is faster.
	Speed float64 `yaml:"speed"`

	// StepDelayMs is the base delay between steps at speed 1.0.
	StepDelayMs int `yaml:"step_delay_ms"`
}

func defaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Speed:       1.0,
		StepDelayMs: 200,
	}
}

// ClampSpeed bounds a speed multiplier to the supported range.
func ClampSpeed(speed float64) float64 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// StepDelay returns the inter-step delay after applying the speed multiplier.
func (c ExecutionConfig) StepDelay() time.Duration {
	base := time.Duration(c.StepDelayMs) * time.Millisecond
	return time.Duration(float64(base) / ClampSpeed(c.Speed))
}
