package data

import (
	"context"
	"fmt"

	"github.com/localboxhq/localbox-server/internal/conf"
	"github.com/localboxhq/localbox-server/internal/pkg/database"
	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	miniopkg "github.com/localboxhq/localbox-server/internal/pkg/minio"
	redispkg "github.com/localboxhq/localbox-server/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data bundles every external resource the server talks to
type Data struct {
	DB          *database.DB
	RedisClient *redispkg.Client
	MinIOClient *miniopkg.Client
	Logger      *zap.Logger
}

// NewData initializes postgres, redis and minio. The returned cleanup closes
// them in reverse order.
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := initDB(config, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	redisClient, err := initRedis(config, log)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to init redis: %w", err)
	}

	minioClient, err := initMinIO(config, log)
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, nil, fmt.Errorf("failed to init minio: %w", err)
	}

	d := &Data{
		DB:          db,
		RedisClient: redisClient,
		MinIOClient: minioClient,
		Logger:      log.Logger,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if err := minioClient.Close(); err != nil {
			log.Warn("failed to close minio client", zap.Error(err))
		}
		if err := redisClient.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}

	return d, cleanup, nil
}

func initDB(config *conf.Config, log *logger.Logger) (*database.DB, error) {
	cfg := database.DefaultConfig()
	cfg.Host = config.Database.Host
	cfg.Port = config.Database.Port
	cfg.User = config.Database.User
	cfg.Password = config.Database.Password
	cfg.DBName = config.Database.DBName
	if config.Database.SSLMode != "" {
		cfg.SSLMode = config.Database.SSLMode
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("database initialized successfully")
	return db, nil
}

func initRedis(config *conf.Config, log *logger.Logger) (*redispkg.Client, error) {
	cfg := redispkg.DefaultConfig()
	cfg.Addr = fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port)
	cfg.Password = config.Redis.Password
	cfg.DB = config.Redis.DB

	return redispkg.New(cfg, log)
}

func initMinIO(config *conf.Config, log *logger.Logger) (*miniopkg.Client, error) {
	client, err := miniopkg.NewClient(&miniopkg.Config{
		Endpoint:        config.MinIO.Endpoint,
		AccessKeyID:     config.MinIO.AccessKey,
		SecretAccessKey: config.MinIO.SecretKey,
		UseSSL:          config.MinIO.UseSSL,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	// the bucket must exist before the first presigned upload lands
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, config.MinIO.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.MinIO.Bucket, miniopkg.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		log.Info("created storage bucket", zap.String("bucket", config.MinIO.Bucket))
	}

	return client, nil
}
