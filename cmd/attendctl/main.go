package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"attendgw/internal/attendance"
	"attendgw/internal/odoo"
)

var flagConfigPath string

var rootCmd = &cobra.Command{
	Use:   "attendctl",
	Short: "attendctl – check in and out of work against an Odoo server",
	Long: `attendctl talks directly to an Odoo server over JSON-RPC to record
attendance. Server connection details are stored in ~/.attendctl/config.json.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to the config file")
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(inCmd)
	rootCmd.AddCommand(outCmd)
	rootCmd.AddCommand(historyCmd)
}

// connect authenticates against the configured server and returns a bound
// source plus a reconciler seeded with any previously discovered downgrade.
func connect(ctx context.Context) (Config, *attendance.OdooSource, *attendance.Reconciler, error) {
	cfg, err := loadConfig()
	if err != nil {
		return Config{}, nil, nil, err
	}
	if cfg.ServerURL == "" || cfg.Login == "" || cfg.APIKey == "" {
		return Config{}, nil, nil, fmt.Errorf("not configured, run: attendctl configure")
	}

	client := odoo.New(cfg.ServerURL, cfg.Database)
	uid, err := client.Authenticate(ctx, cfg.Login, cfg.APIKey)
	if err != nil {
		return Config{}, nil, nil, err
	}
	sess := odoo.Session{UID: uid, Login: cfg.Login, APIKey: cfg.APIKey}

	if cfg.EmployeeID == 0 {
		cfg.EmployeeID, err = client.EmployeeID(ctx, sess)
		if err != nil {
			return Config{}, nil, nil, err
		}
		if err := saveConfig(cfg); err != nil {
			return Config{}, nil, nil, err
		}
	}
	sess.EmployeeID = cfg.EmployeeID

	src := attendance.NewOdooSource(client, sess)
	rec := attendance.NewReconciler(src, cfg.EmployeeID)
	if cfg.GeoUnsupported {
		rec.SetGeoCapability(attendance.GeoUnsupported)
	}
	return cfg, src, rec, nil
}

// rememberDowngrade persists a geo downgrade discovered during this run.
func rememberDowngrade(cfg Config, rec *attendance.Reconciler) {
	if cfg.GeoUnsupported || rec.GeoCapability() != attendance.GeoUnsupported {
		return
	}
	cfg.GeoUnsupported = true
	if err := saveConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save config: %v\n", err)
	} else {
		fmt.Println("Note: server does not accept location fields, disabled for future calls.")
	}
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
