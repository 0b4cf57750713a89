package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/service/device"
	"github.com/facegate/facegate/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command for running the device simulator.
	rootCmd = &cobra.Command{
		Use:   "facegate-device [listen-address]",
		Short: "Run the door actuator device simulator.",
		Long: `Starts the actuator device that executes controller commands.

The device serves one controller connection at a time, decodes the line
protocol and drives a simulated two-line display and door motor. The motor
runs on a deadline, so the command link stays responsive while the door is
open.

Listen address can be provided as argument to override config (e.g. :9090).
Otherwise only the port from the configured device address is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &device.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
			}

			return device.Run(ctx, options)
		},
	}
)

// Execute runs the facegate-device CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
}
