package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/logger"
)

// newInitConfigCommand builds the subcommand that writes a starter settings
// file with the default pipeline parameters.
func newInitConfigCommand() *cobra.Command {
	var (
		initConfigPath string
		initDeviceAddr string
	)

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a settings file with default pipeline parameters.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logger.WithName(cmd.Context(), "init-config")

			cfg := &config.Config{
				DeviceAddress: initDeviceAddr,
			}

			// Validate fills every unset field with its default.
			if err := config.Save(initConfigPath, cfg); err != nil {
				return fmt.Errorf("write settings: %w", err)
			}

			logger.InfoKV(ctx, "Settings written", "path", initConfigPath, "device", cfg.DeviceAddress)

			return nil
		},
	}

	cmd.Flags().StringVarP(&initConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	cmd.Flags().StringVarP(&initDeviceAddr, "device", "d", "127.0.0.1:9033", "actuator device address")

	return cmd
}
