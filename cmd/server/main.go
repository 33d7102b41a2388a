package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/ledger/internal/application/command"
	appevent "github.com/erp/ledger/internal/application/event"
	inventoryapp "github.com/erp/ledger/internal/application/inventory"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/masterdata"
	periodapp "github.com/erp/ledger/internal/application/period"
	procurementapp "github.com/erp/ledger/internal/application/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/lock"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/scheduler"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	signals, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Traces:         cfg.Telemetry.Enabled,
		SamplingRatio:  cfg.Telemetry.SamplingRatio,
		Metrics:        cfg.Telemetry.MetricsEnabled,
		Logs:           cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	// OTLP log export tees every zap entry to the collector
	if signals.Logs.IsEnabled() {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}
		if log, err = logger.New(logCfg, telemetry.NewZapOTELCore(serviceName, signals.Logs, level)); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.PyroscopeURL,
		ApplicationName:   serviceName,
		Tags:              map[string]string{"env": cfg.App.Env, "version": version},
		ProfileContention: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.ProfilingEnabled {
		signals.Traces.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), logger.DefaultSlowQuery)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if db.Driver == "sqlite" {
		// postgres schemas are managed by cmd/migrate
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	if db.Driver == "sqlite" {
		dbTracing.DBSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, signals.Meters, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.MetricsEnabled,
		SlowQueryThreshold: dbTracing.SlowQueryThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	// Redis backs the command locks and the push consumer's dedupe store
	var redisClient *redis.Client
	if cfg.Lock.Enabled || cfg.Idempotency.ConsumerStore == "redis" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, commands rely on row locks only",
				zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
			redisClient = nil
		}
	}

	// Events
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxWriter := event.NewOutboxPublisher(serializer, cfg.Outbox.MaxAttempts)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	eventBus := event.NewInMemoryEventBus(log)

	// Command stack
	scope := persistence.NewGormTransactionScope(db.DB, outboxWriter)
	reads := persistence.NewGormRepositories(db.DB, nil)
	idempotencyRepo := persistence.NewGormIdempotencyRepository(db.DB)
	executor := command.NewExecutor(
		scope,
		idempotencyRepo,
		periodapp.NewGuard(persistence.NewGormPeriodRepository(db.DB)),
		lock.New(redisClient, cfg.Lock, log),
		command.ExecutorConfig{LockTTL: cfg.Lock.TTL},
		log,
	)
	ledgerMetrics, err := telemetry.NewLedgerMetrics(signals.Meters.Meter("ledger"))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	executor.SetMetrics(ledgerMetrics)

	// Application services
	posting := ledgerapp.NewPostingService(log)
	costing := inventoryapp.NewCostingService(inventoryapp.CostingConfig{
		AllowNegativeStock: cfg.Inventory.AllowNegativeStock,
		RecalculateInline:  cfg.Inventory.RecalculateInline,
	}, log)
	recalculation := inventoryapp.NewRecalculationService(costing, executor)
	journalService := ledgerapp.NewJournalService(persistence.NewGormJournalEntryRepository(db.DB), posting, executor)
	periodService := periodapp.NewService(executor)
	procurementService := procurementapp.NewService(executor, reads, posting, costing, procurementapp.AccountingConfig{
		InventoryAccount: cfg.Ledger.InventoryAccount,
		GRNIAccount:      cfg.Ledger.GRNIAccount,
		PayableAccount:   cfg.Ledger.PayableAccount,
		PaymentTermDays:  cfg.Ledger.PaymentTermDays,
	}, log)
	masterDataService := masterdata.NewService(executor, reads)
	outboxService := appevent.NewOutboxService(outboxRepo, log)

	eventBus.Subscribe(inventoryapp.NewRecalculationRequestedHandler(recalculation, log))
	eventBus.Subscribe(ledgerapp.NewJournalEntryCreatedHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Outbox dispatch goes to Pub/Sub when configured, otherwise straight to the local bus
	var (
		publisher       shared.EventPublisher = eventBus
		pubsubPublisher *event.PubSubPublisher
		pushHandler     *handler.PushHandler
		consumerStore   shared.ConsumedEventStore
	)
	if cfg.PubSub.Enabled {
		client, err := event.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			log.Fatal("Failed to create Pub/Sub client", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		topic, err := event.EnsureTopic(ctx, client, cfg.PubSub.TopicID)
		if err != nil {
			log.Fatal("Failed to prepare Pub/Sub topic", zap.Error(err))
		}
		pubsubPublisher = event.NewPubSubPublisher(topic, serializer, cfg.App.Name, log)
		publisher = pubsubPublisher

		storeFactory := cache.NewConsumedStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithRedisClient(redisClient),
		)
		consumerStore, err = storeFactory.CreateStore(ctx, cfg.Idempotency.ConsumerStore)
		if err != nil {
			log.Fatal("Failed to create consumer idempotency store", zap.Error(err))
		}
		consumer := event.NewPushConsumer(serializer, eventBus, consumerStore, shared.DedupConfig{
			TTL:     cfg.Idempotency.ConsumerTTL,
			Enabled: true,
		}, log)
		pushHandler = handler.NewPushHandler(consumer, cfg.PubSub.PushToken)
		log.Info("Publishing events to Pub/Sub", zap.String("topic", cfg.PubSub.TopicID))
	}

	var processor *event.OutboxProcessor
	if cfg.Outbox.ProcessorEnabled {
		processor = event.NewOutboxProcessor(outboxRepo, publisher, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Outbox.BatchSize,
			PollInterval:     cfg.Outbox.PollInterval,
			CleanupEnabled:   cfg.Outbox.CleanupEnabled,
			CleanupRetention: cfg.Outbox.CleanupRetention,
		}, log)
		processor.SetRecorder(ledgerMetrics)
		executor.SetNotifier(processor)
		outboxService.SetNotifier(processor)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	} else {
		log.Warn("Outbox processor disabled, events stay PENDING")
	}

	// Housekeeping
	maintenance := scheduler.New(scheduler.DefaultConfig(), log)
	maintenance.Every(scheduler.NewRetentionPurge("idempotency_purge", idempotencyRepo, cfg.Idempotency.Retention, log),
		cfg.Idempotency.CleanupEvery)
	if err := maintenance.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	checks := map[string]handler.HealthCheck{
		"database": func(context.Context) error { return db.Ping() },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	var jwtService *auth.JWTService
	if cfg.JWT.Enabled {
		jwtService = auth.NewJWTService(cfg.JWT)
	}

	engine, err := router.NewEngine(router.Config{
		Logger:         log,
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tracing:        middleware.TracingConfig{ServiceName: serviceName, Enabled: cfg.Telemetry.Enabled},
		MeterProvider:  signals.Meters,
		Profiling:      cfg.Telemetry.ProfilingEnabled,
		JWT:            middleware.JWTMiddlewareConfig{JWTService: jwtService, Required: cfg.JWT.Enabled, Logger: log},
	}, router.Handlers{
		System:         handler.NewSystemHandler(cfg.App.Name, version, checks),
		PurchaseOrders: handler.NewPurchaseOrderHandler(procurementService),
		Receipts:       handler.NewPurchaseReceiptHandler(procurementService),
		Bills:          handler.NewPurchaseBillHandler(procurementService),
		Journal:        handler.NewJournalHandler(journalService),
		Periods:        handler.NewAccountingPeriodHandler(periodService),
		MasterData:     handler.NewMasterDataHandler(masterDataService),
		Stock:          handler.NewStockHandler(inventoryapp.NewStockQueryService(reads)),
		Outbox:         handler.NewOutboxHandler(outboxService),
		Push:           pushHandler,
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop producers before the sinks they write to
	stop := func(name string, err error) {
		if err != nil {
			log.Error("Shutdown step failed", zap.String("component", name), zap.Error(err))
		}
	}
	stop("scheduler", maintenance.Stop(shutdownCtx))
	if processor != nil {
		stop("outbox processor", processor.Stop(shutdownCtx))
	}
	if pubsubPublisher != nil {
		pubsubPublisher.Stop()
	}
	stop("event bus", eventBus.Stop(shutdownCtx))
	if consumerStore != nil {
		stop("consumer store", consumerStore.Close())
	}
	if redisClient != nil {
		stop("redis", redisClient.Close())
	}
	stop("db metrics", dbMetrics.Stop())
	stop("database", db.Close())
	stop("profiler", profiler.Stop())
	stop("telemetry", signals.Shutdown(shutdownCtx))

	log.Info("Server exited gracefully")
}
