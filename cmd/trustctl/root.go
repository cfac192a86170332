package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"channel-trust-lab/internal/app"
	"channel-trust-lab/internal/engine"
	"channel-trust-lab/internal/observability"
)

var (
	envFile       string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	migrate       bool
	configName    string
	logEnv        string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "trustctl",
	Short:         "Score channel snapshots and maintain stored score records",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			app.LoadEnv(envFile)
		} else {
			app.LoadEnv()
		}
		if postgresDSN == "" {
			postgresDSN = app.GetEnv("POSTGRES_DSN", "")
		}
		if clickhouseDSN == "" {
			clickhouseDSN = app.GetEnv("CLICKHOUSE_DSN", "")
		}
		if configName == "" {
			configName = app.GetEnv("SCORING_CONFIG", "")
		}
		if logEnv == "" {
			logEnv = app.GetEnv("APP_ENV", "development")
		}

		var err error
		logger, err = observability.NewLogger(logEnv)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Optional .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string (env POSTGRES_DSN)")
	rootCmd.PersistentFlags().StringVar(&clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string (env CLICKHOUSE_DSN)")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL")
	rootCmd.PersistentFlags().BoolVar(&migrate, "migrate", false, "Apply database migrations before running")
	rootCmd.PersistentFlags().StringVar(&configName, "config", "", "Scoring config: built-in version or YAML path (env SCORING_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logEnv, "env", "", "Logging environment: production or development (env APP_ENV)")

	rootCmd.AddCommand(scoreCmd, rescoreCmd, verifyCmd, reportCmd)
}

// openStores opens the stores selected by the persistent flags.
func openStores(ctx context.Context) (*app.Stores, func(), error) {
	return app.OpenStores(ctx, app.StoreOptions{
		PostgresDSN:   postgresDSN,
		ClickhouseDSN: clickhouseDSN,
		UseMemory:     useMemory,
		Migrate:       migrate,
		Logger:        logger,
	})
}

func newEngine() (*engine.Engine, error) {
	eng, err := app.NewEngine(configName)
	if err != nil {
		return nil, err
	}
	logger.Info("scoring engine ready", zap.String("config_version", eng.Version()))
	return eng, nil
}
