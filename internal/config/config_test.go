package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.True(t, cfg.NLU.Enabled)
	assert.Equal(t, 0.78, cfg.NLU.ConfidenceThreshold)
	assert.Equal(t, 450, cfg.NLU.TimeoutTextMs)
	assert.Equal(t, 700, cfg.NLU.TimeoutVoiceMs)
	assert.Equal(t, 2, cfg.NLU.Workers)
	assert.Equal(t, 1.0, cfg.Execution.Speed)
	assert.True(t, cfg.Safety.EnableKillSwitch)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().NLU.ConfidenceThreshold, cfg.NLU.ConfidenceThreshold)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
nlu:
  confidence_threshold: 0.9
  timeout_ms_text: 300
execution:
  dry_run: true
  speed: 2.0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.NLU.ConfidenceThreshold)
	assert.Equal(t, 300, cfg.NLU.TimeoutTextMs)
	assert.True(t, cfg.Execution.DryRun)
	assert.Equal(t, 2.0, cfg.Execution.Speed)
	// Untouched sections keep defaults.
	assert.Equal(t, 700, cfg.NLU.TimeoutVoiceMs)
}

func TestLoad_InvalidThresholdRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nlu:\n  confidence_threshold: 1.5\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestClampSpeed(t *testing.T) {
	assert.Equal(t, MinSpeed, ClampSpeed(0.0))
	assert.Equal(t, MaxSpeed, ClampSpeed(99))
	assert.Equal(t, 1.5, ClampSpeed(1.5))
}

func TestNLUConfig_Timeout(t *testing.T) {
	cfg := defaultNLUConfig()
	assert.Equal(t, 450*time.Millisecond, cfg.Timeout("text"))
	assert.Equal(t, 700*time.Millisecond, cfg.Timeout("voice"))
	assert.Equal(t, 450*time.Millisecond, cfg.Timeout(""), "unknown sources use the text budget")
}

func TestExecutionConfig_StepDelay(t *testing.T) {
	cfg := ExecutionConfig{Speed: 2.0, StepDelayMs: 200}
	assert.Equal(t, 100*time.Millisecond, cfg.StepDelay())

	cfg.Speed = 0 // clamped to MinSpeed
	assert.Equal(t, 800*time.Millisecond, cfg.StepDelay())
}
