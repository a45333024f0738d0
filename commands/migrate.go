package commands

import (
	"scamazon_go/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd 自动迁移数据库表结构
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := config.InitDatabase(&cfg.Database, verbose, logger); err != nil {
			return err
		}
		defer config.CloseDatabase()

		if err := config.Migrate(config.DB); err != nil {
			return err
		}
		logger.Info("database migrated", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
