package config

import (
	"os"
	"path/filepath"
)

// VaultConfig configures the credential store backing login autofill.
type VaultConfig struct {
	// Path of the SQLite database. Defaults under the user config dir.
	Path string `yaml:"path"`
}

func defaultVaultConfig() VaultConfig {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return VaultConfig{
		Path: filepath.Join(dir, "pixelink", "vault.db"),
	}
}
