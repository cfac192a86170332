package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"channel-trust-lab/internal/storage"
	chstore "channel-trust-lab/internal/storage/clickhouse"
	"channel-trust-lab/internal/storage/memory"
	"channel-trust-lab/internal/storage/migrations"
	pgstore "channel-trust-lab/internal/storage/postgres"
)

// ErrMissingDSN is returned when persistent storage is requested without a Postgres DSN.
var ErrMissingDSN = errors.New("--postgres-dsn is required (use --use-memory for in-memory storage)")

// StoreOptions selects the storage backends.
type StoreOptions struct {
	PostgresDSN   string
	ClickhouseDSN string // optional; without it no score history is kept
	UseMemory     bool
	Migrate       bool // apply embedded migrations before use
	Pool          pgstore.PoolOptions
	Logger        *zap.Logger
}

// Stores holds all storage implementations.
type Stores struct {
	Snapshots storage.SnapshotStore
	Records   storage.ScoreRecordStore
	History   storage.ScoreHistoryStore // nil when no ClickHouse DSN is configured
	Cursor    storage.IngestCursorStore
}

// OpenStores creates the stores and returns a cleanup function that closes connections.
func OpenStores(ctx context.Context, opts StoreOptions) (*Stores, func(), error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.UseMemory {
		logger.Info("using in-memory storage")
		return &Stores{
			Snapshots: memory.NewSnapshotStore(),
			Records:   memory.NewScoreRecordStore(),
			History:   memory.NewScoreHistoryStore(),
			Cursor:    memory.NewIngestCursorStore(),
		}, func() {}, nil
	}

	if opts.PostgresDSN == "" {
		return nil, nil, ErrMissingDSN
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, opts.PostgresDSN, opts.Pool)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if opts.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	stores := &Stores{
		Snapshots: pgstore.NewSnapshotStore(pool),
		Records:   pgstore.NewScoreRecordStore(pool),
		Cursor:    pgstore.NewIngestCursorStore(pool),
	}
	cleanup := func() { pool.Close() }

	if opts.ClickhouseDSN == "" {
		logger.Warn("no clickhouse dsn configured, score history disabled")
		return stores, cleanup, nil
	}

	// ClickHouse
	var conn *chstore.Conn
	if opts.Migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, opts.ClickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, opts.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	stores.History = chstore.NewScoreHistoryStore(conn)

	return stores, func() {
		conn.Close()
		pool.Close()
	}, nil
}
