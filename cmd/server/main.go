package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	alertapp "github.com/qcdash/backend/internal/application/alert"
	analyticsapp "github.com/qcdash/backend/internal/application/analytics"
	catalogapp "github.com/qcdash/backend/internal/application/catalog"
	defectapp "github.com/qcdash/backend/internal/application/defect"
	detectionapp "github.com/qcdash/backend/internal/application/detection"
	identityapp "github.com/qcdash/backend/internal/application/identity"
	inspectionapp "github.com/qcdash/backend/internal/application/inspection"
	"github.com/qcdash/backend/internal/application/upload"
	"github.com/qcdash/backend/internal/domain/alert"
	"github.com/qcdash/backend/internal/infrastructure/auth"
	"github.com/qcdash/backend/internal/infrastructure/cache"
	"github.com/qcdash/backend/internal/infrastructure/config"
	"github.com/qcdash/backend/internal/infrastructure/detection"
	"github.com/qcdash/backend/internal/infrastructure/event"
	"github.com/qcdash/backend/internal/infrastructure/logger"
	"github.com/qcdash/backend/internal/infrastructure/notify"
	"github.com/qcdash/backend/internal/infrastructure/persistence"
	"github.com/qcdash/backend/internal/infrastructure/report"
	"github.com/qcdash/backend/internal/infrastructure/storage"
	"github.com/qcdash/backend/internal/infrastructure/telemetry"
	"github.com/qcdash/backend/internal/interfaces/http/handler"
	"github.com/qcdash/backend/internal/interfaces/http/middleware"
	"github.com/qcdash/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/qcdash/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Quality Control Dashboard API
//	@version		1.0
//	@description	REST API for manufacturing quality control: inspections, defects, alerts, analytics and AI image detection.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/qcdash/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:5000
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}". The "token" cookie is accepted too.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry: traces, metrics, log export and continuous profiling
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdown(log, "logger provider", loggerProvider.Shutdown)
	if loggerProvider.IsEnabled() {
		log = telemetry.Bridge(log, telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, loggerProvider, logger.ParseLevel(cfg.Log.Level)))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileMemory:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles not enabled", zap.Error(err))
		}
	}

	var qualityMetrics *telemetry.QualityMetrics
	if meterProvider.IsEnabled() {
		qualityMetrics, err = telemetry.NewQualityMetrics(meterProvider.Meter("qc-backend"), log)
		if err != nil {
			log.Fatal("Failed to register quality metrics", zap.Error(err))
		}
		defer qualityMetrics.Stop()
	}

	log.Info("Starting Quality Control Dashboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel, logger.WithSlowThreshold(200*time.Millisecond))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis backs the analytics cache and token revocation when enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr()))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	var (
		analyticsCache cache.Store
		blacklist      auth.TokenBlacklist
	)
	if redisClient != nil {
		analyticsCache = cache.NewStore(redisClient, log)
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	} else {
		memCache := cache.NewInMemoryCache(time.Minute)
		defer func() { _ = memCache.Close() }()
		analyticsCache = memCache
		blacklist = auth.NewInMemoryTokenBlacklist()
		log.Warn("Redis disabled, using in-memory cache and token blacklist")
	}

	// Object storage for product, inspection, defect and AI images
	objectStorage, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	uploadRules := upload.Rules{
		MaxSize:             cfg.Upload.MaxSize,
		AllowedExtensions:   cfg.Upload.AllowedExtensions,
		MaxInspectionImages: cfg.Upload.MaxInspectionImages,
		MaxBulkImages:       cfg.Upload.MaxBulkImages,
	}

	// Image classifier; unavailable when no model endpoint is configured
	detector, err := detection.New(cfg.Detection, log)
	if err != nil {
		log.Fatal("Failed to initialize AI classifier", zap.Error(err))
	}
	if qualityMetrics != nil {
		detector = detection.Instrument(detector, qualityMetrics)
	}

	// Initialize repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	inspectionRepo := persistence.NewGormInspectionRepository(db.DB)
	defectRepo := persistence.NewGormDefectRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)
	analyticsRepo := persistence.NewGormAnalyticsRepository(db.DB)

	// Alert delivery: websocket feed, optional MQTT, log lines and metrics
	hub := notify.NewHub(log, cfg.HTTP.CORSAllowOrigins...)
	defer hub.Close()
	notifiers := notify.Fanout{hub, notify.NewLogNotifier(log)}
	if cfg.MQTT.Enabled {
		publisher, err := notify.NewMQTTPublisher(cfg.MQTT, log)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err), zap.String("broker", cfg.MQTT.Broker))
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}
	qualityRecorder := telemetry.NewQualityEventRecorder(qualityMetrics)
	if qualityMetrics != nil {
		notifiers = append(notifiers, qualityRecorder)
	}

	// Report rendering: HTML templates, PDF through headless Chrome
	templates, err := report.NewTemplateEngine()
	if err != nil {
		log.Fatal("Failed to parse report templates", zap.Error(err))
	}
	printer := report.NewChromedpPrinter(report.ChromedpConfig{
		Timeout:   cfg.Analytics.ReportTimeout,
		RemoteURL: cfg.Analytics.ChromeURL,
		NoSandbox: cfg.Analytics.ChromeNoSandbox,
		Logger:    log,
	})
	defer func() { _ = printer.Close() }()

	// Initialize event bus; handlers run on a small worker pool
	eventBus := event.NewInMemoryEventBus(log, event.WithAsync(4, 256))

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, notify.NewMailer(cfg.Mail, log), cfg.Mail.ClientURL, log)
	userService := identityapp.NewUserService(userRepo, blacklist, jwtService, log)
	productService := catalogapp.NewProductService(productRepo, objectStorage, uploadRules, eventBus, log)
	inspectionService := inspectionapp.NewService(inspectionRepo, defectRepo, productRepo, userRepo, objectStorage, uploadRules, eventBus, log).
		WithTransactionScope(persistence.NewGormInspectionTransactionScope(db.DB))
	defectService := defectapp.NewService(defectRepo, inspectionRepo, productRepo, analyticsRepo, objectStorage, uploadRules, eventBus, log)
	alertService := alertapp.NewAlertService(alertRepo, userRepo, notifiers, log)
	analyticsService := analyticsapp.NewService(
		analyticsRepo, productRepo, userRepo,
		analyticsCache, cfg.Analytics.CacheTTL,
		report.NewRenderer(templates, printer),
		log,
	)
	detectionService := detectionapp.NewService(detector, objectStorage, uploadRules, inspectionRepo, defectService, analyticsRepo, log)

	// Register event handlers for cross-context integration
	// Completed inspection / critical defect -> alert
	alertPolicy := alert.NewPolicy(alert.Thresholds{
		DefectRate:         cfg.Alert.DefectRateThreshold,
		CriticalDefectRate: cfg.Alert.CriticalThreshold,
		InspectionFailure:  cfg.Alert.InspectionFailure,
		CriticalDefect:     cfg.Alert.CriticalDefect,
	})
	qualityEventHandler := alertapp.NewQualityEventHandler(alertPolicy, alertService, log)
	eventBus.Subscribe(qualityEventHandler)

	// Any inspection or defect change -> dashboard cache invalidation
	cacheInvalidationHandler := analyticsapp.NewCacheInvalidationHandler(analyticsService, log)
	eventBus.Subscribe(cacheInvalidationHandler)

	if qualityMetrics != nil {
		eventBus.Subscribe(qualityRecorder)
	}

	log.Info("Event handlers registered",
		zap.Strings("alert_events", qualityEventHandler.EventTypes()),
		zap.Strings("cache_invalidation_events", cacheInvalidationHandler.EventTypes()),
		zap.Float64("defect_rate_threshold", cfg.Alert.DefectRateThreshold),
	)

	// Start event bus
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	qualityMetrics.StartPeriodicCollection(ctx, qualityBacklog{defects: defectRepo, alerts: alertRepo}, time.Minute)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(authService, cfg.Cookie),
		User:       handler.NewUserHandler(userService),
		Product:    handler.NewProductHandler(productService),
		Inspection: handler.NewInspectionHandler(inspectionService),
		Defect:     handler.NewDefectHandler(defectService),
		Alert:      handler.NewAlertHandler(alertService, hub),
		Analytics:  handler.NewAnalyticsHandler(analyticsService),
		AI:         handler.NewAIHandler(detectionService),
	}

	// Set Gin mode based on environment
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register custom validators and JSON tag names for validation errors
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	// Apply middleware in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - Start spans (if telemetry enabled)
	// 4. Logger - Log requests with trace IDs
	// 5. Metrics - Record request count and latency
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if tracerProvider.IsEnabled() {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.TracingAttributeInjector())
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       meterProvider.IsEnabled(),
	}))

	securityConfig := middleware.DefaultSecurityConfig()
	securityConfig.HSTSEnabled = cfg.App.IsProduction()
	engine.Use(middleware.SecureWithConfig(securityConfig))

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	// Stricter limit for login, registration and password reset
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer authLimiter.Stop()
		engine.Use(pathPrefixed(r.BasePath()+"/auth/", middleware.RateLimit(authLimiter)))
		log.Info("Auth rate limiting enabled",
			zap.Int("requests", cfg.HTTP.AuthRateLimitRequests),
			zap.Duration("window", cfg.HTTP.AuthRateLimitWindow),
		)
	}

	// System routes (outside API versioning)
	systemHandler := handler.NewSystemHandler(healthChecks(db, redisClient)...)
	engine.GET("/", systemHandler.Root)
	engine.GET("/health", systemHandler.Health)
	engine.NoRoute(systemHandler.NoRoute)

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.CookieName = cfg.Cookie.Name
	jwtConfig.TokenBlacklist = blacklist
	jwtConfig.Logger = log
	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)
	r.Use(jwtMiddleware)

	// Swagger documentation endpoint
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.App.IsProduction(),
		}, jwtMiddleware),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	// Register domain route groups and setup routes
	router.RegisterAPI(r, handlers)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// healthChecks lists the dependencies /health reports on
func healthChecks(db *persistence.Database, redisClient *redis.Client) []handler.HealthCheck {
	checks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	return checks
}

// pathPrefixed runs mw only for requests under prefix
func pathPrefixed(prefix string, mw gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, prefix) {
			mw(c)
			return
		}
		c.Next()
	}
}

// qualityBacklog feeds the open defect and unread alert gauges
type qualityBacklog struct {
	defects *persistence.GormDefectRepository
	alerts  *persistence.GormAlertRepository
}

func (b qualityBacklog) OpenDefectCount(ctx context.Context) (int64, error) {
	return b.defects.OpenDefectCount(ctx)
}

func (b qualityBacklog) UnreadAlertCount(ctx context.Context) (int64, error) {
	return b.alerts.UnreadAlertCount(ctx)
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
