package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/learnrec/internal/config"
	"github.com/temcen/learnrec/internal/database"
	"github.com/temcen/learnrec/internal/datasource"
	"github.com/temcen/learnrec/internal/handlers"
	"github.com/temcen/learnrec/internal/messaging"
	"github.com/temcen/learnrec/internal/middleware"
	"github.com/temcen/learnrec/internal/services"
	"github.com/temcen/learnrec/internal/validation"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	producer *messaging.ExposureProducer
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	app.producer = messaging.NewExposureProducer(&cfg.Kafka, schemas, app.logger)

	source := app.dataSource()
	app.services = services.New(cfg, app.logger, db, source, app.producer, prometheus.DefaultRegisterer)
	app.handlers = handlers.New(app.logger, app.services)

	app.setupRouter()

	return app, nil
}

// dataSource layers the optional graph neighbour lookup and the catalog cache over Postgres.
func (a *App) dataSource() services.CourseDataSource {
	var source services.CourseDataSource = datasource.NewPostgresSource(a.db.PG, a.logger)

	if a.config.Algorithms.Collaborative.NeighborStore == "neo4j" {
		if a.db.HasGraph() {
			source = datasource.NewGraphNeighborSource(source, a.db.Neo4j, a.logger)
		} else {
			a.logger.Warn("neo4j neighbour store requested but no graph connection is configured, using postgres")
		}
	}

	return datasource.NewCachedCatalog(source, a.db.Redis.Warm, a.config.Algorithms.Caching.CatalogTTL, a.logger)
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	done := make(chan struct{})
	go func() {
		a.services.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Timed out waiting for exposure writes")
	}

	if err := a.producer.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing exposure producer")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(&a.config.Security.CORS))

	// Health check endpoint (no auth required)
	router.GET("/health", a.handlers.Health.Check)

	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	{
		api.Use(middleware.Auth(a.services.Auth, a.logger))
		api.Use(middleware.RateLimit(a.services.RateLimit, a.logger))

		api.GET("/recommendations/:userId", a.handlers.Recommendation.Get)
		api.GET("/experiments/recommendations/:userId", a.handlers.Recommendation.GetABTest)
	}

	a.router = router
}
