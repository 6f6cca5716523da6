package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the server connection details for attendctl, stored in
// ~/.attendctl/config.json.
type Config struct {
	// ServerURL is the Odoo server base URL, e.g. "https://erp.example.com".
	ServerURL string `json:"server_url"`
	// Database is the Odoo database name.
	Database string `json:"database"`
	// Login is the Odoo user login.
	Login string `json:"login"`
	// APIKey is the Odoo API key (or password) used for RPC calls.
	APIKey string `json:"api_key"`
	// EmployeeID caches the hr.employee id resolved after the first login.
	EmployeeID int `json:"employee_id,omitempty"`
	// GeoUnsupported remembers that the server rejected location fields.
	GeoUnsupported bool `json:"geo_unsupported,omitempty"`
}

// configPath returns the config file location, honoring the --config flag.
func configPath() (string, error) {
	if flagConfigPath != "" {
		return flagConfigPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".attendctl", "config.json"), nil
}

// loadConfig reads the config file. A missing file yields a zero Config.
func loadConfig() (Config, error) {
	path, err := configPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("corrupt config %s: %w", path, err)
	}
	return cfg, nil
}

// saveConfig atomically writes the config file.
func saveConfig(cfg Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}
