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

	"github.com/richxcame/vehicle-marketplace/internal/availability"
	"github.com/richxcame/vehicle-marketplace/internal/notifications"
	"github.com/richxcame/vehicle-marketplace/internal/reservation"
	"github.com/richxcame/vehicle-marketplace/internal/users"
	"github.com/richxcame/vehicle-marketplace/internal/vehicle"
	"github.com/richxcame/vehicle-marketplace/pkg/cache"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/config"
	"github.com/richxcame/vehicle-marketplace/pkg/database"
	"github.com/richxcame/vehicle-marketplace/pkg/errors"
	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/richxcame/vehicle-marketplace/pkg/health"
	"github.com/richxcame/vehicle-marketplace/pkg/jwtkeys"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"github.com/richxcame/vehicle-marketplace/pkg/middleware"
	"github.com/richxcame/vehicle-marketplace/pkg/ratelimit"
	redisclient "github.com/richxcame/vehicle-marketplace/pkg/redis"
	"github.com/richxcame/vehicle-marketplace/pkg/resilience"
	"github.com/richxcame/vehicle-marketplace/pkg/tracing"
	"go.uber.org/zap"
)

const (
	serviceName = "marketplace-service"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting marketplace service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	// Initialize Sentry for error tracking
	if enabled, err := errors.InitSentry(cfg.Sentry, cfg.Server); err != nil {
		logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
	} else if enabled {
		defer errors.Flush(2 * time.Second)
		logger.Info("Sentry error tracking initialized successfully")
	}

	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	}, logger.Get())
	if err != nil {
		logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
	} else if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to shutdown tracer", zap.Error(err))
			}
		}()
		logger.Info("OpenTelemetry tracing initialized successfully")
	}

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database.MigrationsPath, cfg.Database.URL()); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied")
	}

	db, err := database.NewPostgresPool(context.Background(), &cfg.Database, serviceName)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to database")

	redisClient, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}()
	limiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit)
	if limiter.Enabled() {
		logger.Info("Rate limiting enabled",
			zap.Int("default_limit", cfg.RateLimit.DefaultLimit),
			zap.Duration("window", cfg.RateLimit.Window()),
		)
	}

	breakerFor := func(name string) *resilience.CircuitBreaker {
		if !cfg.Resilience.CircuitBreaker.Enabled {
			return nil
		}
		return resilience.NewCircuitBreaker(
			resilience.SettingsFromConfig(name, cfg.Resilience.CircuitBreaker.SettingsFor(name)),
			nil,
		)
	}

	tx := database.NewTxManager(db)

	vehicleRepo := vehicle.NewRepository(db)
	vehicleService := vehicle.NewService(vehicleRepo)
	vehicleState := vehicle.NewStateProjection(vehicleRepo)
	userRepo := users.NewRepository(db)
	reservationRepo := reservation.NewRepository(db)

	availabilityService := availability.NewService(availability.NewRepository(db), reservationRepo, vehicleService, tx)
	if cfg.Calendar.CacheEnabled {
		availabilityService.SetCache(cache.NewManager(redisClient), cfg.Calendar.CacheTTL())
	}

	reservationService := reservation.NewService(tx, reservationRepo, vehicleService, vehicleState, userRepo, availabilityService)

	var (
		bus         *eventbus.Bus
		smtpBreaker *resilience.CircuitBreaker
		natsBreaker *resilience.CircuitBreaker
		dispatcher  *notifications.Dispatcher
		notifier    notifications.Notifier
	)
	if cfg.NATS.Enabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATS.URL
		busCfg.StreamName = cfg.NATS.StreamName
		busCfg.Name = serviceName
		bus, err = eventbus.New(busCfg)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer bus.Close()

		natsBreaker = breakerFor("nats-publish")
		notifier = notifications.NewBusNotifier(bus, natsBreaker, cfg.Notifications.SendTimeout())
		logger.Info("Reservation notifications published to JetStream", zap.String("stream", cfg.NATS.StreamName))
	} else {
		renderer, err := notifications.NewRenderer()
		if err != nil {
			logger.Fatal("Failed to parse email templates", zap.Error(err))
		}
		smtpBreaker = breakerFor("smtp-email")
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
		dispatcher = notifications.NewDispatcher(
			notifications.NewMailer(emailClient, renderer, userRepo),
			cfg.Notifications.QueueSize,
			cfg.Notifications.Workers,
			cfg.Notifications.SendTimeout(),
		)
		dispatcher.Start()
		notifier = dispatcher
	}
	reservationService.SetNotifier(notifier)

	jwtProvider := keyProvider(cfg.JWT)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics(serviceName))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware(serviceName))
	}
	router.Use(middleware.ErrorHandler())

	// Health check endpoints
	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))

	healthChecks := map[string]func() error{
		"database": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Ping(ctx)
		},
		"redis": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		},
	}
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, healthChecks))

	deep := health.NewDeepChecker(health.DeepCheckerConfig{
		Version:  version,
		Timeout:  2 * time.Second,
		CacheTTL: 5 * time.Second,
	})
	deep.AddDependency("database", true, func(ctx context.Context) error { return db.Ping(ctx) })
	deep.AddDependency("redis", false, func(ctx context.Context) error { return redisClient.Ping(ctx) })
	if bus != nil {
		deep.AddDependency("nats", false, func(context.Context) error { return bus.Ping() })
	}
	deep.AddCircuitBreaker("smtp-email", smtpBreaker)
	deep.AddCircuitBreaker("nats-publish", natsBreaker)
	router.GET("/health/deep", deep.GinHandler())

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"version": version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	vehicle.NewHandler(vehicleService).RegisterRoutes(router, jwtProvider)
	availability.NewHandler(availabilityService).RegisterRoutes(router, jwtProvider)
	reservation.NewHandler(reservationService).RegisterRoutes(router, jwtProvider,
		middleware.RateLimit(limiter),
		middleware.Idempotency(redisClient),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// HTTP is drained, so nothing enqueues any more.
	if dispatcher != nil {
		if err := dispatcher.Stop(ctx); err != nil {
			logger.Warn("Notification queue not fully drained", zap.Error(err))
		}
	}

	logger.Info("Server stopped")
}

// keyProvider prefers the rotated key set when one is configured.
func keyProvider(cfg config.JWTConfig) jwtkeys.KeyProvider {
	if cfg.Keys != "" {
		return jwtkeys.ParseKeySet(cfg.Keys, cfg.Secret)
	}
	return jwtkeys.NewStaticProvider(cfg.Secret)
}
