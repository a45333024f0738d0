package commands

import (
	"fmt"
	"os"

	"scamazon_go/config"
	"scamazon_go/middleware"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// 全局参数
	envFile string
	verbose bool
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "scamazon",
	Short: "Scamazon - peer-to-peer book marketplace backend",
	Long: `Scamazon lets sellers list books with a quantity and a price, and buyers
collect listings in a cart and check out into orders.

Commands:
  serve     start the HTTP API
  migrate   create or update the database schema`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path of the .env file to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log SQL statements")
}

// bootstrap 加载 .env 和配置，创建日志
func bootstrap() (*config.Config, *zap.Logger, error) {
	envLoaded := godotenv.Load(envFile) == nil

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := middleware.NewLogger(cfg.Server.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if !envLoaded {
		logger.Info("no .env file found, using system environment variables", zap.String("path", envFile))
	}
	return cfg, logger, nil
}
