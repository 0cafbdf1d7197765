package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/localboxhq/localbox-server/internal/auth/middleware"
	"github.com/localboxhq/localbox-server/internal/conf"
	"github.com/localboxhq/localbox-server/internal/data"
	fileboxservice "github.com/localboxhq/localbox-server/internal/filebox/service"
	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	"go.uber.org/zap"
)

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

// pinger probes one backing dependency
type pinger func(ctx context.Context) error

// healthHandler reports per-dependency health. Any failing ping degrades
// the overall status to 503.
func healthHandler(pings map[string]pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{}

		for name, ping := range pings {
			if err := ping(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}

		c.JSON(status, gin.H{
			"status": overall,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	d *data.Data,
	tagService *fileboxservice.TagService,
	fileService *fileboxservice.FileService,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log))
	router.Use(middleware.CORS())

	// Health check pinging every backing dependency
	router.GET("/health", healthHandler(map[string]pinger{
		"database": d.DB.HealthCheck,
		"redis":    d.RedisClient.Ping,
		"minio":    d.MinIOClient.Ping,
	}))

	// API routes. Auth is optional: anonymous requests pass through, valid
	// tokens attach the uploader identity used by the owner tagging.
	api := router.Group("/api/v1")
	api.Use(middleware.OptionalJWTAuth(config.Auth.JWTSecret, config.Auth.JWTIssuer, log))
	api.Use(middleware.APIRateLimiter(d.RedisClient, log))

	tagService.RegisterRoutes(api)
	fileService.RegisterRoutes(api, middleware.UploadRateLimiter(d.RedisClient, log))

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: log,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
