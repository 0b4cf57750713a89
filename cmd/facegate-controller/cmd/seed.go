package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/logger"
	"github.com/facegate/facegate/internal/repository/policy"
)

// newSeedCommand builds the subcommand that fills the policy database with
// a demo roster, so the pipeline can be exercised without an enrollment
// tool.
func newSeedCommand() *cobra.Command {
	var seedConfigPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the policy database with demo subjects and rules.",
		Long: `Creates the policy database if needed and inserts a small demo roster:
two subjects with weekday working-hours access windows. Existing subjects
with the same identifiers are overwritten; rules are appended.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logger.WithName(cmd.Context(), "seed")

			settings, err := config.Load(seedConfigPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			store, err := policy.OpenSQLite(ctx, settings.PolicyDBPath)
			if err != nil {
				return fmt.Errorf("open policy store: %w", err)
			}
			defer store.Close()

			subjects := []policy.Subject{
				{ID: 3, Name: "hassen", Position: "technician"},
				{ID: 4, Name: "zied", Position: "engineer"},
			}

			for _, subject := range subjects {
				if err := store.UpsertSubject(ctx, subject); err != nil {
					return fmt.Errorf("upsert subject %q: %w", subject.Name, err)
				}

				// Monday through Friday, 08:00 to 18:00.
				for day := range 5 {
					rule := policy.Rule{
						SubjectID:   subject.ID,
						DayOfWeek:   day,
						StartMinute: 8 * 60,
						EndMinute:   18 * 60,
					}

					if err := store.AddRule(ctx, rule); err != nil {
						return fmt.Errorf("add rule for %q: %w", subject.Name, err)
					}
				}

				logger.InfoKV(ctx, "Seeded subject", "id", int(subject.ID), "name", subject.Name)
			}

			logger.InfoKV(ctx, "Policy database seeded", "path", settings.PolicyDBPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&seedConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	return cmd
}
