package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cfgServerURL string
	cfgDatabase  string
	cfgLogin     string
	cfgAPIKey    string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set server connection details",
	Args:  cobra.NoArgs,
	RunE:  runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&cfgServerURL, "url", "", "Odoo server base URL")
	configureCmd.Flags().StringVar(&cfgDatabase, "database", "", "Odoo database name")
	configureCmd.Flags().StringVar(&cfgLogin, "login", "", "Odoo user login")
	configureCmd.Flags().StringVar(&cfgAPIKey, "api-key", "", "Odoo API key or password")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	changed := false
	if cfgServerURL != "" {
		cfg.ServerURL = cfgServerURL
		changed = true
	}
	if cfgDatabase != "" {
		cfg.Database = cfgDatabase
		changed = true
	}
	if cfgLogin != "" {
		cfg.Login = cfgLogin
		changed = true
	}
	if cfgAPIKey != "" {
		cfg.APIKey = cfgAPIKey
		changed = true
	}

	if changed {
		// Connection details changed; re-resolve the employee and re-probe
		// geo support on the next call.
		cfg.EmployeeID = 0
		cfg.GeoUnsupported = false
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Println("Configuration saved.")
		return nil
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	fmt.Printf("Config file: %s\n", path)
	fmt.Printf("  Server:   %s\n", valueOr(cfg.ServerURL, "(unset)"))
	fmt.Printf("  Database: %s\n", valueOr(cfg.Database, "(unset)"))
	fmt.Printf("  Login:    %s\n", valueOr(cfg.Login, "(unset)"))
	if cfg.APIKey != "" {
		fmt.Println("  API key:  (set)")
	} else {
		fmt.Println("  API key:  (unset)")
	}
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
