// Package main runs the scoring service: the websocket snapshot feed, the
// HTTP API and Prometheus metrics in one process.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"channel-trust-lab/internal/api"
	"channel-trust-lab/internal/app"
	"channel-trust-lab/internal/ingestion"
	"channel-trust-lab/internal/observability"
	"channel-trust-lab/internal/recorder"
	"channel-trust-lab/internal/reporting"
	pgstore "channel-trust-lab/internal/storage/postgres"
)

func main() {
	envFile := flag.String("env-file", "", "Optional .env file (default: ./.env if present)")
	addr := flag.String("addr", app.GetEnv("SERVER_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (env POSTGRES_DSN)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (env CLICKHOUSE_DSN)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	migrate := flag.Bool("migrate", false, "Apply database migrations on startup")
	configName := flag.String("config", "", "Scoring config: built-in version or YAML path (env SCORING_CONFIG)")
	feedURL := flag.String("feed-url", "", "Websocket snapshot feed endpoint (env FEED_URL)")
	feedChannels := flag.String("feed-channels", "", "Comma-separated channel filter for the feed")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins")
	env := flag.String("env", "", "Logging environment: production or development (env APP_ENV)")

	flag.Parse()

	if *envFile != "" {
		app.LoadEnv(*envFile)
	} else {
		app.LoadEnv()
	}
	// Flags win over the environment, which may have just been populated from .env.
	setDefault(postgresDSN, app.GetEnv("POSTGRES_DSN", ""))
	setDefault(clickhouseDSN, app.GetEnv("CLICKHOUSE_DSN", ""))
	setDefault(configName, app.GetEnv("SCORING_CONFIG", ""))
	setDefault(feedURL, app.GetEnv("FEED_URL", ""))
	setDefault(feedChannels, app.GetEnv("FEED_CHANNELS", ""))
	setDefault(corsOrigins, app.GetEnv("CORS_ORIGINS", ""))
	setDefault(env, app.GetEnv("APP_ENV", "development"))
	if !*useMemory {
		*useMemory = app.GetEnvAsBool("USE_MEMORY", false)
	}
	if !*migrate {
		*migrate = app.GetEnvAsBool("MIGRATE", false)
	}

	logger, err := observability.NewLogger(*env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := app.NewEngine(*configName)
	if err != nil {
		logger.Fatal("failed to build engine", zap.Error(err))
	}
	logger.Info("scoring engine ready", zap.String("config_version", eng.Version()))

	stores, cleanup, err := app.OpenStores(ctx, app.StoreOptions{
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		UseMemory:     *useMemory,
		Migrate:       *migrate,
		Pool: pgstore.PoolOptions{
			MaxConns:        int32(app.GetEnvAsInt("POSTGRES_MAX_CONNS", 0)),
			MinConns:        int32(app.GetEnvAsInt("POSTGRES_MIN_CONNS", 0)),
			MaxConnLifetime: app.GetEnvAsDuration("POSTGRES_MAX_CONN_LIFETIME", 0),
			MaxConnIdleTime: app.GetEnvAsDuration("POSTGRES_MAX_CONN_IDLE_TIME", 0),
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	defer cleanup()

	metrics := observability.DefaultMetrics
	rec := recorder.New(stores.Records, stores.History)

	var source ingestion.SnapshotSource
	if *feedURL != "" {
		wsCfg := ingestion.DefaultWSConfig()
		wsCfg.ReconnectDelay = app.GetEnvAsDuration("FEED_RECONNECT_DELAY", wsCfg.ReconnectDelay)
		wsCfg.MaxReconnectDelay = app.GetEnvAsDuration("FEED_MAX_RECONNECT_DELAY", wsCfg.MaxReconnectDelay)
		wsCfg.PingInterval = app.GetEnvAsDuration("FEED_PING_INTERVAL", wsCfg.PingInterval)
		wsCfg.ReadTimeout = app.GetEnvAsDuration("FEED_READ_TIMEOUT", wsCfg.ReadTimeout)
		wsCfg.Buffer = app.GetEnvAsInt("FEED_BUFFER", wsCfg.Buffer)

		source = ingestion.NewWSSource(ingestion.WSSourceOptions{
			Endpoint: *feedURL,
			Channels: app.SplitList(*feedChannels),
			Config:   &wsCfg,
			Logger:   logger,
			Metrics:  metrics,
		})
	}

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:        source,
		SnapshotStore: stores.Snapshots,
		CursorStore:   stores.Cursor,
		Engine:        eng,
		Recorder:      rec,
		Logger:        logger,
		Metrics:       metrics,
	})

	server := api.NewServer(api.Options{
		Addr:         *addr,
		CORSOrigins:  app.SplitList(*corsOrigins),
		ReadTimeout:  app.GetEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: app.GetEnvAsDuration("SERVER_WRITE_TIMEOUT", 65*time.Second),
		Engine:       eng,
		Runner:       runner,
		Records:      stores.Records,
		Reporter:     reporting.NewGenerator(stores.Records, stores.History),
		Logger:       logger,
	})

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if source != nil {
		g.Go(func() error {
			server.SetFeedActive(true)
			defer server.SetFeedActive(false)
			logger.Info("starting snapshot feed", zap.String("endpoint", *feedURL))
			err := runner.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("no feed url configured, accepting snapshots via POST /ingest only")
	}

	err = g.Wait()
	close(done)

	if err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete", zap.Any("ingestion", runner.Stats()))
}

// setDefault fills an unset flag from the environment.
func setDefault(flagValue *string, envValue string) {
	if *flagValue == "" {
		*flagValue = envValue
	}
}
