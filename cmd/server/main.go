package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/localboxhq/localbox-server/internal/conf"
	"github.com/localboxhq/localbox-server/internal/data"
	fileboxbiz "github.com/localboxhq/localbox-server/internal/filebox/biz"
	fileboxdata "github.com/localboxhq/localbox-server/internal/filebox/data"
	fileboxservice "github.com/localboxhq/localbox-server/internal/filebox/service"
	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	"github.com/localboxhq/localbox-server/internal/pkg/workerpool"
	"github.com/localboxhq/localbox-server/internal/server"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// .env is optional, it only feeds the variables config.yaml references
	_ = godotenv.Load()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	logConfig := &logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	}

	log, err := logger.New(logConfig)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize global logger
	if err := logger.InitGlobal(logConfig); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Migrate schema
	if err := fileboxdata.MigrateWithLog(context.Background(), d.DB, log.Logger); err != nil {
		log.Fatal("failed to migrate schema", zap.Error(err))
	}

	// Initialize repositories
	tagRepo := fileboxdata.NewTagRepo(d.DB)
	fileRepo := fileboxdata.NewFileRepo(d.DB)
	storageService := fileboxdata.NewMinIOStorage(d.MinIOClient, config.MinIO.Bucket)
	urlCache := fileboxdata.NewRedisURLCache(d.RedisClient, log)

	// Initialize use cases
	tagUseCase := fileboxbiz.NewTagUseCase(tagRepo, d.RedisClient, log)

	fileConfig := fileboxbiz.DefaultFileConfig()
	if config.Upload.UploadURLExpiry > 0 {
		fileConfig.UploadURLExpiry = config.Upload.UploadURLExpiry
	}
	if config.Upload.DownloadURLExpiry > 0 {
		fileConfig.DownloadURLExpiry = config.Upload.DownloadURLExpiry
	}

	fileUseCase := fileboxbiz.NewFileUseCase(
		fileRepo,
		tagRepo,
		tagUseCase,
		storageService,
		urlCache,
		fileConfig,
		log,
	)

	// Initialize upload worker pool
	pool, err := workerpool.New(&workerpool.Config{
		InitialWorkers: config.Upload.Concurrency,
		QueueSize:      100,
	}, log.Logger)
	if err != nil {
		log.Fatal("failed to create worker pool", zap.Error(err))
	}
	defer pool.Shutdown()

	// Initialize services
	tagService := fileboxservice.NewTagService(tagUseCase, log)
	fileService := fileboxservice.NewFileService(fileUseCase, pool, log)

	// Initialize server
	httpServer := server.NewHTTPServer(config, log, d, tagService, fileService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
