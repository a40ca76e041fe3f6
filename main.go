package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
	"social-dashboard/infrastructure/cache"
	"social-dashboard/infrastructure/clients"
	"social-dashboard/infrastructure/clients/facebook"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/configuration"
	"social-dashboard/infrastructure/logger"
	"social-dashboard/infrastructure/metrics"
	"social-dashboard/infrastructure/notifier"
	"social-dashboard/infrastructure/persistence"
	"social-dashboard/infrastructure/pubsub"
	"social-dashboard/infrastructure/realtime"
	"social-dashboard/infrastructure/servicebus"
	httpHandler "social-dashboard/interfaces/http"
	"social-dashboard/server"
	"social-dashboard/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// OS env keeps precedence over the files
	if n := configuration.LoadEnvFromFile("config.env", ".env"); n > 0 {
		logger.GetLogger().WithField("keys", n).Info("Loaded environment from file")
		configuration.Reload()
	}
	app := configuration.C.App
	clk := clock.New()
	collector := metrics.NewCollector()

	stores := InitiateDatabase(ctx)
	rateLimitStore := InitiateRateLimitStore(ctx)

	limiter := usecase.NewRateLimiter(rateLimitStore, rateLimitPolicies(configuration.C.RateLimit), clk, collector)

	emailSender, closeEmail := InitiateEmailSender(ctx)
	defer closeEmail()
	notify := notifier.New(emailSender, nil)

	notificationRepository := persistence.NewNotificationRepository(stores.documents)
	notificationUsecase := usecase.NewNotificationUsecase(
		notificationRepository, notify, limiter, clk, collector, configuration.C.Notification.DashboardURL,
	)

	hub := realtime.NewAlertHub()
	channels := usecase.AlertChannels{Email: notificationUsecase, Webhook: notify, Dashboard: hub}
	if publisher := InitiateAlertPublisher(ctx); publisher != nil {
		defer publisher.Stop()
		channels.EventStream = publisher
	}

	alertConfigRepository := persistence.NewAlertConfigRepository(stores.documents)
	alertRepository := persistence.NewAlertRepository(stores.documents)
	alertUsecase := usecase.NewAlertUsecase(alertConfigRepository, alertRepository, limiter, channels, clk, collector)

	monitoring := configuration.C.Monitoring
	monitorUsecase := usecase.NewMonitorUsecase(stores.events, alertConfigRepository, alertUsecase, clk, usecase.MonitorWindows{
		Metrics:  monitoring.MetricWindow(),
		Failures: monitoring.FailureWindow(),
	})

	retry := usecase.NewRetryOrchestrator(
		usecase.MergeRetryConfigs(retryOverrides(configuration.C.Retry)), usecase.DefaultClassifiers(), stores.retryLogs, clk, collector,
	)
	publishUsecase := usecase.NewPublishUsecase(InitiatePlatformClients(), retry, monitorUsecase, clk, collector)

	generator := usecase.NewReportGenerator(stores.events, alertRepository, clk)
	reportUsecase := usecase.NewReportUsecase(stores.schedules, generator, notify, clk, collector)
	if err := reportUsecase.Start(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while arming report schedules")
	}
	defer reportUsecase.Stop()

	router := server.InitiateRouter(server.Handlers{
		Alert:        httpHandler.NewAlertHandler(alertUsecase),
		RateLimit:    httpHandler.NewRateLimitHandler(limiter),
		Report:       httpHandler.NewReportHandler(reportUsecase),
		Notification: httpHandler.NewNotificationHandler(notificationUsecase),
		Post:         httpHandler.NewPostHandler(publishUsecase),
		Monitoring:   httpHandler.NewMonitoringHandler(monitorUsecase),
		AlertStream:  hub.Serve,
		Metrics:      collector.Handler(),
		Instrument:   collector.Middleware(),
	}, app.SecretKey, app.AllowedOrigins...)

	g.Go(func() error {
		return monitorUsecase.Run(ctx, monitoring.SampleInterval())
	})
	g.Go(func() error {
		return flushDigests(ctx, notificationUsecase, model.NotifyHourly, time.Hour)
	})
	g.Go(func() error {
		return flushDigests(ctx, notificationUsecase, model.NotifyDaily, 24*time.Hour)
	})

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

type storeSet struct {
	documents repository.IStore
	retryLogs repository.IRetryLog
	events    repository.IDeliveryEvent
	schedules repository.IReportSchedule
}

// InitiateDatabase connects every configured database and falls back to in-process
// storage for the ones that are unavailable.
func InitiateDatabase(ctx context.Context) storeSet {
	stores := storeSet{
		documents: persistence.NewMemoryStore(),
		retryLogs: persistence.NewMemoryRetryLogRepository(),
		events:    persistence.NewMemoryDeliveryEventRepository(),
		schedules: persistence.NewMemoryReportScheduleRepository(),
	}

	retryOnMSSQL := false
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
		} else if err := persistence.EnsureSchemaMSSQL(mssql); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring mssql retry log schema")
		} else {
			stores.retryLogs = persistence.NewRetryLogRepositoryMSSQL(mssql)
			retryOnMSSQL = true
			logger.GetLogger().Info("Retry attempt log on MSSQL")
		}
	}

	if psql, err := persistence.NewPostgreSQLDB(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("PostgreSQL not available - delivery events kept in memory")
	} else if err := persistence.EnsureSchema(psql); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring postgres schema")
	} else {
		stores.events = persistence.NewDeliveryEventRepository(psql)
		if !retryOnMSSQL {
			stores.retryLogs = persistence.NewRetryLogRepository(psql)
		}
		logger.GetLogger().Info("PostgreSQL connected successfully")
	}

	if mysqlDb, err := persistence.NewRepositories(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MySQL not available - report schedules kept in memory")
	} else if err := persistence.EnsureReportSchema(mysqlDb); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring report schedule schema")
	} else {
		stores.schedules = persistence.NewReportScheduleRepository(mysqlDb)
		logger.GetLogger().Info("MySQL connected successfully")
	}

	mongoCfg := configuration.C.Database.Mongo
	mongoDb, err := persistence.NewMongoDb(mongoCfg.Host, mongoCfg.Port, mongoCfg.User, mongoCfg.Password, mongoCfg.Name)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing with in-memory documents")
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing with in-memory documents")
	} else {
		stores.documents = persistence.NewMongoStore(mongoDb, mongoCfg.Name)
		logger.GetLogger().Info("MongoDB connected successfully")
	}
	return stores
}

func InitiateRateLimitStore(ctx context.Context) repository.IRateLimit {
	redisCfg := configuration.C.RedisClient
	if redisCfg.Host == "" {
		logger.GetLogger().Info("Redis not configured - rate limits kept in memory")
		return cache.NewMemoryRateLimit()
	}
	client, err := cache.NewCache(ctx, fmt.Sprintf("%s:%s", redisCfg.Host, redisCfg.Port), redisCfg.Username, redisCfg.Password)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - rate limits kept in memory")
		return cache.NewMemoryRateLimit()
	}
	logger.GetLogger().Info("Redis client initialized successfully.")
	return cache.NewRedisRateLimit(client, 0)
}

// InitiateEmailSender prefers the Service Bus relay queue and logs mail otherwise.
func InitiateEmailSender(ctx context.Context) (notifier.EmailSender, func()) {
	sb := configuration.C.ServiceBus
	noop := func() {}
	if sb.Namespace == "" {
		logger.GetLogger().Info("Service Bus not configured - e-mails are logged only")
		return notifier.LogEmailSender{}, noop
	}
	client, err := servicebus.NewServiceBus(ctx, sb.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - e-mails are logged only")
		return notifier.LogEmailSender{}, noop
	}
	sender, err := servicebus.NewEmailSender(client, sb.EmailQueue, configuration.C.Notification.FromAddress)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Service Bus e-mail queue unavailable - e-mails are logged only")
		return notifier.LogEmailSender{}, noop
	}
	return sender, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sender.Close(closeCtx); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Error while closing e-mail sender")
		}
	}
}

func InitiateAlertPublisher(ctx context.Context) *pubsub.AlertPublisher {
	cfg := configuration.C.Pubsub
	if cfg.ProjectID == "" {
		return nil
	}
	client, err := pubsub.NewPubSub(ctx, cfg.ProjectID, cfg.CredentialsFile)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while instantiate PubSub")
		return nil
	}
	publisher := pubsub.NewAlertPublisher(client, cfg.AlertTopic)
	if err := publisher.EnsureTopic(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while ensuring alert topic")
		publisher.Stop()
		return nil
	}
	return publisher
}

// InitiatePlatformClients registers the in-process clients. Enabled platforms without
// credentials stay unregistered and publish requests to them fail as unsupported.
func InitiatePlatformClients() *clients.Registry {
	registry := clients.NewRegistry()
	fb := configuration.C.Platforms.Facebook
	if fb.PageID != "" && fb.PageAccessToken != "" {
		registry.Register(model.PlatformFacebook, facebook.NewClient(facebook.Config{
			PageID:          fb.PageID,
			PageAccessToken: fb.PageAccessToken,
			GraphVersion:    fb.GraphVersion,
		}))
	}
	registered := map[model.Platform]bool{}
	for _, p := range registry.Platforms() {
		registered[p] = true
	}
	for _, name := range configuration.C.Platforms.Enabled {
		if p := model.Platform(strings.ToLower(name)); !registered[p] {
			logger.GetLogger().WithField("platform", p).Warn("Platform enabled without client credentials")
		}
	}
	return registry
}

func flushDigests(ctx context.Context, notifications usecase.INotificationUsecase, frequency model.NotificationFrequency, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sent, err := notifications.FlushDigests(ctx, frequency)
			if err != nil {
				logger.GetLogger().WithField("frequency", frequency).WithField("error", err).Error("Error while flushing digests")
				continue
			}
			logger.GetLogger().WithField("frequency", frequency).WithField("sent", sent).Info("Digests flushed")
		}
	}
}

func retryOverrides(cfg configuration.Retry) map[model.Platform]model.RetryConfig {
	out := make(map[model.Platform]model.RetryConfig, len(cfg.Platforms))
	for name, p := range cfg.Platforms {
		out[model.Platform(name)] = model.RetryConfig{
			MaxAttempts:   p.MaxAttempts,
			InitialDelay:  time.Duration(p.InitialDelayMs) * time.Millisecond,
			MaxDelay:      time.Duration(p.MaxDelayMs) * time.Millisecond,
			BackoffFactor: p.BackoffFactor,
		}
	}
	return out
}

func rateLimitPolicies(cfg configuration.RateLimit) map[model.RateLimitCategory]usecase.RateLimitPolicy {
	out := make(map[model.RateLimitCategory]usecase.RateLimitPolicy, len(cfg.Categories))
	for name, p := range cfg.Categories {
		out[model.RateLimitCategory(strings.ToLower(name))] = usecase.RateLimitPolicy{
			Window:      time.Duration(p.WindowSeconds) * time.Second,
			MaxRequests: p.MaxRequests,
		}
	}
	return out
}
