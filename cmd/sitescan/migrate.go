package main

import (
	"github.com/samber/do"
	"github.com/sitescan/sitescan/internal/bootstrap"
	"github.com/sitescan/sitescan/internal/infra/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// provider-level auto migration would run before the explicit step
			a.cfg.Database.AutoMigrate = false

			i := bootstrap.New(cmd.Context(), a.cfg, a.log)
			defer i.Shutdown()

			d, err := do.Invoke[*bootstrap.Database](i)
			if err != nil {
				return err
			}
			if rollback {
				if err := db.RollbackLast(d.DB); err != nil {
					return err
				}
				a.log.Info("rolled back last migration")
				return nil
			}
			if err := db.Migrate(d.DB); err != nil {
				return err
			}
			a.log.Info("migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the most recent migration instead")
	return cmd
}
