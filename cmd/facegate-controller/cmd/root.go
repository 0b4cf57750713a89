package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/service/controller"
	"github.com/facegate/facegate/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// deviceAddress overrides the actuator address from configuration.
	deviceAddress string
	// feedFile is the recognition feed to replay; "-" reads stdin.
	feedFile string

	// rootCmd represents the base command for running the access controller.
	rootCmd = &cobra.Command{
		Use:   "facegate-controller",
		Short: "Run the face access controller pipeline.",
		Long: `Starts the access controller that turns face recognition results into
door commands.

Recognition frames are read from the feed file (or standard input), debounced
over consecutive frames, checked against the access policy database and, for
authorized subjects, confirmed with a password challenge before the door is
opened. Every decision is written to the audit trail.

The actuator device is reached over TCP at the configured device address.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &controller.Options{
				ConfigPath:    configPath,
				DeviceAddress: deviceAddress,
				FeedFile:      feedFile,
			}

			return controller.Run(ctx, options)
		},
	}
)

// Execute runs the facegate-controller CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(newSeedCommand(), newInitConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&deviceAddress, "device", "d", "", "actuator device address (overrides config)")
	rootCmd.Flags().StringVarP(&feedFile, "feed", "f", "", "recognition feed file, \"-\" for stdin (overrides config)")
}
