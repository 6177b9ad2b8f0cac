package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration file and environment overrides and report every
problem found. Exits with status 2 when the configuration is invalid.

Examples:
  firetail config validate --config /etc/firetail/firetail.yaml
  FIRETAIL_URL=https://... FIRETAIL_APIKEY=... firetail config validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "✓ Configuration valid")
		if verbose {
			fmt.Fprintf(out, "  ingest:   %s\n", cfg.Ingest.URL)
			fmt.Fprintf(out, "  upstream: %s\n", cfg.Server.Upstream)
			fmt.Fprintf(out, "  ledger:   %s\n", ledgerDescription(cfg))
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := config.Marshal(config.Redacted(cfg))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configShowCmd)
}

func ledgerDescription(cfg *config.Config) string {
	switch {
	case !cfg.Ledger.Enabled:
		return "disabled"
	case cfg.Ledger.Backend == "sqlite":
		return fmt.Sprintf("sqlite (%s, driver %s)", cfg.Ledger.SQLite.Path, cfg.Ledger.SQLite.Driver)
	default:
		return cfg.Ledger.Backend
	}
}
