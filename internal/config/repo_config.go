// Package config provides repository configuration management,
// including reading and writing the landit configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the configuration file stored in the repository
// metadata directory (.git or .hg).
const ConfigFileName = ".landit_config"

// LandingPolicy describes when a non-passing build should block or warn
// at land time.
type LandingPolicy string

const (
	// PolicyAlways warns on any non-passing build
	PolicyAlways LandingPolicy = "always"
	// PolicyBuilding warns only while the build is still running
	PolicyBuilding LandingPolicy = "building"
	// PolicyComplete warns only once the build has completed
	PolicyComplete LandingPolicy = "complete"
	// PolicyNever never blocks landing
	PolicyNever LandingPolicy = "never"
)

// RepoConfig represents the repository configuration
type RepoConfig struct {
	OntoDefault   *string                  `json:"onto,omitempty"`
	RemoteDefault *string                  `json:"remote,omitempty"`
	BuildPolicies map[string]LandingPolicy `json:"buildPolicies,omitempty"`
}

// GetRepoConfig reads the repository configuration from the metadata
// directory. A missing file yields the default config.
func GetRepoConfig(metaDir string) (*RepoConfig, error) {
	configPath := filepath.Join(metaDir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return &RepoConfig{}, nil
	}

	var config RepoConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse repo config: %w", err)
	}

	return &config, nil
}

// WriteRepoConfig writes the repository configuration.
func WriteRepoConfig(metaDir string, config *RepoConfig) error {
	configPath := filepath.Join(metaDir, ConfigFileName)

	configJSON, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, configJSON, 0600)
}

// GetDefaultOnto returns the configured default landing target, or "".
func GetDefaultOnto(metaDir string) (string, error) {
	config, err := GetRepoConfig(metaDir)
	if err != nil {
		return "", err
	}
	if config.OntoDefault != nil {
		return *config.OntoDefault, nil
	}
	return "", nil
}

// GetDefaultRemote returns the configured default remote, or "".
func GetDefaultRemote(metaDir string) (string, error) {
	config, err := GetRepoConfig(metaDir)
	if err != nil {
		return "", err
	}
	if config.RemoteDefault != nil {
		return *config.RemoteDefault, nil
	}
	return "", nil
}

// GetBuildPolicy returns the landing policy for a build plan. Plans
// without explicit configuration warn on any non-passing build.
func GetBuildPolicy(metaDir, plan string) (LandingPolicy, error) {
	config, err := GetRepoConfig(metaDir)
	if err != nil {
		return PolicyAlways, err
	}
	if policy, ok := config.BuildPolicies[plan]; ok {
		return policy, nil
	}
	return PolicyAlways, nil
}
