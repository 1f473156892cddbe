package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/infra/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

//	@title						SiteScan API
//	@version					1.0
//	@description				Field documentation of archaeological artifacts: capture, gallery, notes and the research assistant.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the access token.

type app struct {
	cfg   *config.Config
	v     *viper.Viper
	log   *zap.Logger
	level zap.AtomicLevel
}

func main() {
	// .env is optional in deployed environments
	_ = godotenv.Load()

	var configFile string
	a := &app{}

	root := &cobra.Command{
		Use:           "sitescan",
		Short:         "SiteScan artifact documentation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, v, err := config.Load(configFile)
			if err != nil {
				return err
			}
			log, level, err := logger.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.cfg, a.v, a.log, a.level = cfg, v, log, level
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (default ./config.yaml or ./configs/config.yaml)")

	root.AddCommand(newServeCmd(a), newMigrateCmd(a))

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
