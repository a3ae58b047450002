package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromFile_Missing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.NoError(t, err)
	assert.Equal(t, Default().Endpoint, cfg.Endpoint)
	assert.Equal(t, 3, cfg.HeartbeatSeconds)
	assert.Equal(t, 500, cfg.EstimateDebounceMs)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(`{"endpoint": "ws://localhost:8546"}`))
	assert.NoError(t, err)
	assert.Equal(t, "ws://localhost:8546", cfg.Endpoint)
	assert.Equal(t, Default().ExplorerURL, cfg.ExplorerURL)
	assert.Equal(t, Default().ConfirmTimeoutSeconds, cfg.ConfirmTimeoutSeconds)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(strings.NewReader(`{not json`))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvExplorerURL, "https://explorer.example/api")
	t.Setenv(EnvExplorerAPIKey, "sekrit")

	cfg, err := Load(strings.NewReader(`{"explorer_url": "https://file.example/api"}`))
	assert.NoError(t, err)
	assert.Equal(t, "https://explorer.example/api", cfg.ExplorerURL)
	assert.Equal(t, "sekrit", cfg.ExplorerAPIKey)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")

	cfg := Default()
	cfg.Endpoint = "http://127.0.0.1:9999"
	cfg.HeartbeatSeconds = 7

	assert.NoError(t, Save(cfg, path))

	loaded, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999", loaded.Endpoint)
	assert.Equal(t, 7, loaded.HeartbeatSeconds)

	// tmp file must not be left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSave_RejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Endpoint = ""
	err := Save(cfg, filepath.Join(t.TempDir(), "cfg.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Empty(t, Validate(Default()))

	bad := Config{}
	problems := Validate(bad)
	assert.NotEmpty(t, problems)
}
