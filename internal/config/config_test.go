package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err, "explicit config path must exist")
	assert.Nil(t, s)

	s, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/entctl", s.DataDir)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"data_dir: /tmp/entctl-test\ncontract_url: https://contracts.example.com\nallow_beta: true\n",
	), 0600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/entctl-test", s.DataDir)
	assert.Equal(t, "https://contracts.example.com", s.ContractURL)
	assert.True(t, s.AllowBeta)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contract_url: https://file.example.com\n"), 0600))

	t.Setenv("ENTCTL_CONTRACT_URL", "https://env.example.com")
	t.Setenv("ENTCTL_ALLOW_BETA", "1")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", s.ContractURL)
	assert.True(t, s.AllowBeta)
}

func TestValidateRejectsBadURL(t *testing.T) {
	s := DefaultSettings()
	s.ContractURL = "ftp://nope"
	assert.Error(t, s.Validate())

	s.ContractURL = "https://ok"
	s.DataDir = ""
	assert.Error(t, s.Validate())
}
