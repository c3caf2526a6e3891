package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/e-code/agent/cmd/executor/docs" // swagger docs
	"github.com/e-code/agent/internal/executor"
	"github.com/e-code/agent/internal/shared/config"
	"github.com/e-code/agent/internal/shared/logger"
	"github.com/e-code/agent/internal/shared/metrics"
	"github.com/e-code/agent/internal/shared/middleware"
)

// App is the assembled executor service.
type App struct {
	config    *config.Config
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics
	service   *executor.Service
}

// LoadConfig loads the executor configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop flushes buffered log entries.
func (a *App) Stop() {
	_ = a.zapLogger.Sync()
}

// newApp wires the middleware chain and routes.
func newApp(
	cfg *config.Config,
	log *logger.Logger,
	zapLog *zap.Logger,
	m *metrics.Metrics,
	service *executor.Service,
	handler *executor.Handler,
) *App {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(log))
	router.Use(middleware.Metrics(m))

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Executor.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Executor.AllowedOrigins
	}
	router.Use(middleware.CORS(corsCfg))

	handler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	return &App{
		config:    cfg,
		router:    router,
		logger:    log,
		zapLogger: zapLog,
		metrics:   m,
		service:   service,
	}
}
