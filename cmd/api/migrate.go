package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cimillas/ticket-booking/internal/config"
	"github.com/cimillas/ticket-booking/migrations"
)

func newMigrateCommand(v *viper.Viper) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if cfg.Store != config.StorePostgres {
				return fmt.Errorf("migrate requires the postgres store, got %q", cfg.Store)
			}
			logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

			pool, err := openPool(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if status {
				list, err := migrations.Status(cmd.Context(), pool)
				if err != nil {
					return err
				}
				for _, m := range list {
					state := "pending"
					if m.Applied {
						state = "applied " + m.AppliedAt.UTC().Format("2006-01-02T15:04:05Z")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", m.Name, state)
				}
				return nil
			}

			applied, err := migrations.Apply(cmd.Context(), pool, logger)
			if err != nil {
				return err
			}
			logger.Info().Int("applied", len(applied)).Msg("migrations complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "list migrations and whether they are applied")
	return cmd
}
