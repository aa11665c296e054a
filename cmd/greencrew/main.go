// cmd/greencrew/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"greencrew/internal/api"
	"greencrew/internal/common/auth"
	"greencrew/internal/common/aws"
	"greencrew/internal/common/camunda"
	"greencrew/internal/common/config"
	"greencrew/internal/common/database"
	"greencrew/internal/common/logger"
	"greencrew/internal/common/observability"
	"greencrew/internal/lifecycle"
	"greencrew/internal/messaging"
	"greencrew/internal/notify"
	"greencrew/internal/profiles"
	"greencrew/internal/search"
	"greencrew/internal/store"

	dn "greencrew/internal/workers/notification/deliver-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// reindexLoop repairs index drift left by failed writes.
func reindexLoop(ctx context.Context, backend *search.ElasticBackend, src search.JobScanner, batch int, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := backend.Reindex(ctx, src, batch); err != nil {
				log.Warn("periodic reindex failed", zap.Error(err))
			}
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting GreenCrew...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()
	checks := map[string]api.Check{}
	reindexCtx, stopReindex := context.WithCancel(ctx)
	defer stopReindex()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	checks["postgres"] = pg.Ping
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pg.DB); err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Migrations applied")
	}
	db := store.NewPostgres(pg.DB)

	// --- Redis (optional profile cache) ---
	var cache redis.Cmdable
	if cfg.Database.Redis.Address != "" {
		rc := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error { return rc.Ping(ctx) }, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		cache = rc.Client
		checks["redis"] = rc.Ping
		zapLog.Info("Redis connected successfully")
	}
	profileLoader := profiles.NewLoader(db, cache, config.GetDuration(cfg.Profiles.CacheTTL), log)

	// --- Elasticsearch (optional search backend and index mirror) ---
	var source search.CandidateSource = search.NewStoreSource(db)
	var lifecycleOpts = []lifecycle.Option{lifecycle.WithObservability(obs)}
	if cfg.Search.Backend == "elasticsearch" || cfg.Search.IndexOnWrite {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		backend := search.NewElasticBackend(esClient.Client, cfg.Database.Elasticsearch.JobsIndex, log)
		if err := backend.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
		}
		if cfg.Search.Backend == "elasticsearch" {
			source = backend
		}
		if cfg.Search.IndexOnWrite {
			lifecycleOpts = append(lifecycleOpts, lifecycle.WithIndexer(backend))
			if _, err := backend.Reindex(ctx, db, cfg.Search.BatchSize); err != nil {
				zapLog.Warn("initial reindex failed", zap.Error(err))
			}
			if interval := config.GetDuration(cfg.Search.ReindexInterval); interval > 0 {
				go reindexLoop(reindexCtx, backend, db, cfg.Search.BatchSize, interval, zapLog)
			}
		}
		checks["elasticsearch"] = esClient.Ping
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.Database.Elasticsearch.JobsIndex))
	}

	// --- Identity provider ---
	keycloak := auth.NewKeycloakClient(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
		config.GetDuration(cfg.Auth.Keycloak.Timeout),
	)

	// --- Camunda (optional notification delivery workflow) ---
	var zeebe *camunda.Client
	var dispatcher notify.Dispatcher
	var workers []*camunda.Worker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checks["zeebe"] = zeebe.HealthCheck
		zapLog.Info("Zeebe client connected successfully")

		if cfg.Notifications.DispatchToWorkflow {
			dispatcher = notify.NewWorkflowDispatcher(zeebe, cfg.Notifications.MessageName, config.GetDuration(cfg.Notifications.MessageTTL))
		}

		if config.IsWorkerEnabled(cfg, dn.TaskType) {
			deps := dn.Deps{
				Notifications: db,
				Profiles:      profileLoader,
				Directory:     keycloak,
			}
			if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
				awsCfg, err := aws.LoadConfig(ctx, cfg.Integrations.AWS.Region)
				if err != nil {
					zapLog.Fatal("aws config load failed", zap.Error(err))
				}
				if cfg.Integrations.AWS.SES.Enabled {
					deps.Email = aws.NewSESClient(awsCfg)
				}
				if cfg.Integrations.AWS.SNS.Enabled {
					deps.SMS = aws.NewSNSClient(awsCfg)
				}
			}
			wcfg := config.GetWorkerConfig(cfg, dn.TaskType)
			handler := dn.NewHandler(dn.LoadConfig(cfg), deps, log)
			workers = append(workers, camunda.StartWorker(zeebe.GetClient(), camunda.WorkerOptions{
				TaskType:      dn.TaskType,
				MaxJobsActive: wcfg.MaxJobsActive,
				Timeout:       config.GetDuration(wcfg.Timeout),
			}, handler, log))
		}
	}

	// --- Domain services ---
	emitter := notify.NewEmitter(db, dispatcher, log)
	engine := lifecycle.NewEngine(db, emitter, cfg.Marketplace, log, lifecycleOpts...)
	searchEngine := search.NewEngine(source, db, profileLoader, cfg.Search, log, search.WithObservability(obs))
	server := api.New(api.Deps{
		Lifecycle:     engine,
		Search:        searchEngine,
		Messages:      messaging.NewService(db, emitter, log),
		Notifications: notify.NewService(db),
		Identity:      keycloak,
		Profiles:      profileLoader,
	}, log)

	apiServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	opsServer := &http.Server{
		Addr:    cfg.Server.OpsAddress,
		Handler: api.OpsHandler(checks),
	}

	for _, srv := range []*http.Server{apiServer, opsServer} {
		go func(srv *http.Server) {
			zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Fatal("HTTP server failed", zap.String("address", srv.Addr), zap.Error(err))
			}
		}(srv)
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	stopReindex()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	for _, srv := range []*http.Server{apiServer, opsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("HTTP server shutdown failed", zap.String("address", srv.Addr), zap.Error(err))
		}
	}
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("observability shutdown failed", zap.Error(err))
	}

	zapLog.Info("GreenCrew stopped gracefully")
}
