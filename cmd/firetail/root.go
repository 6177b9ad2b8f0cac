package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FireTail-io/firetail-go-lib/pkg/cli"
	"github.com/FireTail-io/firetail-go-lib/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "firetail",
	Short: "FireTail API telemetry sidecar",
	Long: `firetail captures HTTP request/response exchanges in front of an API and
ships them to the FireTail ingestion endpoint.

Configuration comes from an optional YAML file (--config) overlaid with
FIRETAIL_* environment variables. FIRETAIL_URL and FIRETAIL_APIKEY are
required.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the file named by --config, if any, plus the environment.
// Load and validation failures are reported as configuration errors.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	return cfg, nil
}
