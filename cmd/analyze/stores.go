package main

import (
	"context"
	"errors"
	"fmt"

	"sales-forecast-lab/internal/config"
	"sales-forecast-lab/internal/storage"
	"sales-forecast-lab/internal/storage/clickhouse"
	"sales-forecast-lab/internal/storage/memory"
	"sales-forecast-lab/internal/storage/migrations"
	pgstore "sales-forecast-lab/internal/storage/postgres"
)

// createStores opens the row store and, when a ClickHouse DSN is set, the
// forecast run archive. The returned cleanup closes whatever was opened.
func createStores(ctx context.Context, cfg config.StoreConfig, useMemory bool) (storage.SalesRowStore, storage.ForecastRunStore, func(), error) {
	if useMemory {
		return memory.NewSalesRowStore(), memory.NewForecastRunStore(), func() {}, nil
	}
	if cfg.PostgresDSN == "" {
		return nil, nil, nil, errors.New("postgres dsn is required (set SALES_STORE_POSTGRES_DSN or use -use-memory)")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN,
		pgstore.WithMaxConns(cfg.MaxConns),
		pgstore.WithConnectTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	rows := pgstore.NewSalesRowStore(pool)

	if cfg.ClickhouseDSN == "" {
		return rows, nil, pool.Close, nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return rows, clickhouse.NewForecastRunStore(conn), cleanup, nil
}
