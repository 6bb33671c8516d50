package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/lunations/config.yml.
// It holds credentials that don't belong in the repository.
type GlobalConfig struct {
	ADSAPIToken string `yaml:"ads_api_token,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "lunations"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/lunations/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetADSAPIToken returns the ADS API token from global config.
func GetADSAPIToken() string {
	cfg, _ := LoadGlobalConfig()
	return cfg.ADSAPIToken
}

// HelpfulTokenMessage returns guidance for when no ADS API token is found.
func HelpfulTokenMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No ADS API token found.

Set the ADS_API_TOKEN environment variable, or create %s:
  mkdir -p %s
  echo 'ads_api_token: YOUR_TOKEN' > %s

Tokens are issued at https://ui.adsabs.harvard.edu/user/settings/token`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
