package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadboost/leadpipe/internal/quota"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and seed the plan catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate: apply schema")
		}

		catalog := quota.NewPlanCatalog(cfg.Plans)
		gate := quota.NewGate(st, catalog)
		if err := gate.Seed(ctx); err != nil {
			return eris.Wrap(err, "migrate: seed plans")
		}

		zap.L().Info("migrate: schema applied and plans seeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
