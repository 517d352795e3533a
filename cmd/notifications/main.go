package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richxcame/vehicle-marketplace/internal/notifications"
	"github.com/richxcame/vehicle-marketplace/internal/users"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/config"
	"github.com/richxcame/vehicle-marketplace/pkg/database"
	"github.com/richxcame/vehicle-marketplace/pkg/errors"
	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/richxcame/vehicle-marketplace/pkg/health"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"github.com/richxcame/vehicle-marketplace/pkg/middleware"
	"github.com/richxcame/vehicle-marketplace/pkg/resilience"
	"go.uber.org/zap"
)

const (
	serviceName = "notifications-service"
	version     = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// Initialize logger
	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting notifications service", zap.String("version", version))

	if enabled, err := errors.InitSentry(cfg.Sentry, cfg.Server); err != nil {
		log.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
	} else if enabled {
		defer errors.Flush(2 * time.Second)
	}

	// Recipients are resolved here, not by the API
	db, err := database.NewPostgresPool(rootCtx, &cfg.Database, serviceName)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	userRepo := users.NewRepository(db)

	renderer, err := notifications.NewRenderer()
	if err != nil {
		log.Fatal("Failed to parse email templates", zap.Error(err))
	}

	var smtpBreaker *resilience.CircuitBreaker
	if cfg.Resilience.CircuitBreaker.Enabled {
		smtpBreaker = resilience.NewCircuitBreaker(
			resilience.SettingsFromConfig("smtp-email", cfg.Resilience.CircuitBreaker.SettingsFor("smtp-email")),
			nil,
		)
	}

	// Email Client
	emailClient := notifications.NewResilientEmailClient(
		notifications.NewEmailClient(
			cfg.Notifications.SMTPHost,
			cfg.Notifications.SMTPPort,
			cfg.Notifications.SMTPUsername,
			cfg.Notifications.SMTPPassword,
			cfg.Notifications.FromEmail,
			cfg.Notifications.FromName,
		),
		smtpBreaker,
	)
	log.Info("Email client initialized", zap.String("smtp_host", cfg.Notifications.SMTPHost))

	busCfg := eventbus.DefaultConfig()
	busCfg.URL = cfg.NATS.URL
	busCfg.StreamName = cfg.NATS.StreamName
	busCfg.Name = serviceName
	bus, err := eventbus.New(busCfg)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer bus.Close()

	handler := notifications.NewEventHandler(notifications.NewMailer(emailClient, renderer, userRepo))
	if err := handler.RegisterSubscriptions(rootCtx, bus); err != nil {
		log.Fatal("Failed to subscribe to reservation events", zap.Error(err))
	}

	// Setup Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.Metrics(serviceName))

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, map[string]func() error{
		"database": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Ping(ctx)
		},
		"nats": bus.Ping,
	}))

	deep := health.NewDeepChecker(health.DeepCheckerConfig{
		Version:  version,
		Timeout:  2 * time.Second,
		CacheTTL: 5 * time.Second,
	})
	deep.AddDependency("database", true, func(ctx context.Context) error { return db.Ping(ctx) })
	deep.AddDependency("nats", true, func(context.Context) error { return bus.Ping() })
	deep.AddCircuitBreaker("smtp-email", smtpBreaker)
	router.GET("/health/deep", deep.GinHandler())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
