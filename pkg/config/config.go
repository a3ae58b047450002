package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const ConfigFileName = ".evmwallet.json"

// Env overrides, checked after the file is loaded. The explorer endpoint is
// usually supplied this way so the API key stays out of the config file.
const (
	EnvEndpoint       = "EVMWALLET_ENDPOINT"
	EnvExplorerURL    = "EVMWALLET_EXPLORER_URL"
	EnvExplorerAPIKey = "EVMWALLET_EXPLORER_API_KEY"
)

// Config holds application-wide settings.
type Config struct {
	// Endpoint is the wallet transport RPC URL. The default targets a
	// Frame-style local signer that exposes the injected-provider method
	// set over HTTP.
	Endpoint string `json:"endpoint"`

	ExplorerURL    string `json:"explorer_url"`
	ExplorerAPIKey string `json:"explorer_api_key,omitempty"`

	HeartbeatSeconds      int `json:"heartbeat_seconds"`
	EstimateDebounceMs    int `json:"estimate_debounce_ms"`
	ConfirmTimeoutSeconds int `json:"confirm_timeout_seconds"`
}

// Default returns the built-in settings used when no config file exists.
func Default() Config {
	return Config{
		Endpoint:              "http://127.0.0.1:1248",
		ExplorerURL:           "https://api.etherscan.io/v2/api",
		HeartbeatSeconds:      3,
		EstimateDebounceMs:    500,
		ConfirmTimeoutSeconds: 120,
	}
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

func LoadFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return applyEnv(Default()), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

func Load(r io.Reader) (Config, error) {
	var file struct {
		Endpoint              *string `json:"endpoint"`
		ExplorerURL           *string `json:"explorer_url"`
		ExplorerAPIKey        *string `json:"explorer_api_key"`
		HeartbeatSeconds      *int    `json:"heartbeat_seconds"`
		EstimateDebounceMs    *int    `json:"estimate_debounce_ms"`
		ConfirmTimeoutSeconds *int    `json:"confirm_timeout_seconds"`
	}
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if file.Endpoint != nil {
		cfg.Endpoint = *file.Endpoint
	}
	if file.ExplorerURL != nil {
		cfg.ExplorerURL = *file.ExplorerURL
	}
	if file.ExplorerAPIKey != nil {
		cfg.ExplorerAPIKey = *file.ExplorerAPIKey
	}
	if file.HeartbeatSeconds != nil {
		cfg.HeartbeatSeconds = *file.HeartbeatSeconds
	}
	if file.EstimateDebounceMs != nil {
		cfg.EstimateDebounceMs = *file.EstimateDebounceMs
	}
	if file.ConfirmTimeoutSeconds != nil {
		cfg.ConfirmTimeoutSeconds = *file.ConfirmTimeoutSeconds
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(EnvExplorerURL); v != "" {
		cfg.ExplorerURL = v
	}
	if v := os.Getenv(EnvExplorerAPIKey); v != "" {
		cfg.ExplorerAPIKey = v
	}
	return cfg
}

// Validate reports the structural problems a config test run should surface.
func Validate(cfg Config) []string {
	var problems []string
	if strings.TrimSpace(cfg.Endpoint) == "" {
		problems = append(problems, "endpoint is empty")
	}
	if strings.TrimSpace(cfg.ExplorerURL) == "" {
		problems = append(problems, "explorer_url is empty")
	}
	if cfg.HeartbeatSeconds <= 0 {
		problems = append(problems, "heartbeat_seconds must be positive")
	}
	if cfg.EstimateDebounceMs <= 0 {
		problems = append(problems, "estimate_debounce_ms must be positive")
	}
	return problems
}

func Save(cfg Config, path string) error {
	if problems := Validate(cfg); len(problems) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
