package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"scamazon_go/config"
	"scamazon_go/controllers"
	"scamazon_go/middleware"
	"scamazon_go/routes"
	"scamazon_go/services"
	"scamazon_go/utils"
	"scamazon_go/websocket"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// serve 参数
	autoMigrate  bool
	eventWorkers int
)

// serveCmd 启动HTTP服务
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Migrate the schema before serving")
	serveCmd.Flags().IntVar(&eventWorkers, "event-workers", 4, "Order event publisher workers")
}

func runServe() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := utils.RegisterValidations(); err != nil {
		return err
	}

	// 初始化数据库
	if err := config.InitDatabase(&cfg.Database, verbose, logger); err != nil {
		return err
	}
	defer config.CloseDatabase()
	if autoMigrate {
		if err := config.Migrate(config.DB); err != nil {
			return err
		}
	}

	// 初始化Redis（失败时降级为无缓存）
	if err := config.InitializeRedis(&cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, running without cache", zap.Error(err))
	}
	defer config.CloseRedis()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 订单事件：Redis Stream + Kafka + WebSocket
	hub := websocket.NewHub(config.RedisClient, logger)
	go hub.Run(ctx)

	sinks := []services.EventSink{hub}
	if s := services.NewRedisStreamSink(config.RedisClient, "order_events"); s != nil {
		sinks = append(sinks, s)
	}
	if s := services.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic); s != nil {
		defer s.Close()
		sinks = append(sinks, s)
	}
	publisher := services.NewEventPublisher(logger, eventWorkers, sinks...)
	defer publisher.Close()

	accessLogger := middleware.NewAccessLogger(logger, config.RedisClient, 3)
	defer accessLogger.Close()

	// 服务与控制器
	db := config.DB
	authService := services.NewAuthService(db, config.RedisClient, config.NewJWTService(&cfg.JWT), logger)
	catalog := services.NewCatalogService(db, config.RedisClient, logger)
	listings := services.NewListingService(db, logger)
	cart := services.NewCartService(db, logger)
	checkout := services.NewCheckoutService(db, publisher, logger)
	orders := services.NewOrderService(db, publisher, logger)
	uploader := utils.NewFileUploader(&utils.UploadConfig{
		MaxFileSize: cfg.Upload.MaxFileSize,
		UploadPath:  cfg.Upload.Path,
	}, config.RedisClient)

	r := config.SetupRouter(cfg.Server.Mode)
	routes.SetupRoutes(r, &routes.Handlers{
		Auth:          controllers.NewAuthController(authService),
		Books:         controllers.NewBookController(catalog),
		Listings:      controllers.NewListingController(listings),
		Images:        controllers.NewImageController(uploader, services.NewImageService(db), logger),
		Cart:          controllers.NewCartController(cart),
		Orders:        controllers.NewOrderController(checkout, orders),
		Authenticator: authService,
		AccessLogger:  accessLogger,
		Hub:           hub,
		CORSOrigins:   cfg.Server.CORSOrigins,
		UploadPath:    cfg.Upload.Path,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	return nil
}
