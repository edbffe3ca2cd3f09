package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetRepoConfigMissingFileYieldsDefaults(t *testing.T) {
	config, err := GetRepoConfig(t.TempDir())
	require.NoError(t, err)
	require.Nil(t, config.OntoDefault)
	require.Nil(t, config.RemoteDefault)
	require.Empty(t, config.BuildPolicies)
}

func TestWriteAndReadRepoConfig(t *testing.T) {
	metaDir := t.TempDir()
	onto := "main"
	remote := "upstream"

	err := WriteRepoConfig(metaDir, &RepoConfig{
		OntoDefault:   &onto,
		RemoteDefault: &remote,
		BuildPolicies: map[string]LandingPolicy{"nightly": PolicyNever},
	})
	require.NoError(t, err)

	gotOnto, err := GetDefaultOnto(metaDir)
	require.NoError(t, err)
	require.Equal(t, "main", gotOnto)

	gotRemote, err := GetDefaultRemote(metaDir)
	require.NoError(t, err)
	require.Equal(t, "upstream", gotRemote)

	policy, err := GetBuildPolicy(metaDir, "nightly")
	require.NoError(t, err)
	require.Equal(t, PolicyNever, policy)
}

func TestGetBuildPolicyDefaultsToAlways(t *testing.T) {
	policy, err := GetBuildPolicy(t.TempDir(), "anything")
	require.NoError(t, err)
	require.Equal(t, PolicyAlways, policy)
}

func TestGetRepoConfigRejectsMalformedJSON(t *testing.T) {
	metaDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, ConfigFileName), []byte("{nope"), 0600))

	_, err := GetRepoConfig(metaDir)
	require.Error(t, err)
}
