// Crowdsensing simulates a network of sensing devices that share location
// readings with their neighbours in synchronised rounds.
//
// Every device runs its own control goroutine and worker pool. A supervisor
// replays a YAML scenario: each round it tells every device who its
// neighbours are and which aggregation scripts to run, and the devices meet
// at a shared barrier before the next round starts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path, used when it exists.
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancels on Ctrl+C and SIGTERM; a running simulation stops between rounds.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called explicitly above
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crowdsensing",
		Short: "Crowdsensing device network simulator",
		Long: `crowdsensing runs scenarios of sensing devices that exchange location
readings with their neighbours in barrier-synchronised rounds.

Round results can be recorded in SQLite, published over MQTT, written to
InfluxDB and inspected through a local HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default $CROWDSENSING_CONFIG or "+defaultConfigPath+")")

	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
			}
			fmt.Fprintf(out, "crowdsensing %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

// getConfigPath resolves the config file: --config, then CROWDSENSING_CONFIG,
// then the default path if present. An empty result means built-in defaults.
func getConfigPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	if path := os.Getenv("CROWDSENSING_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}
