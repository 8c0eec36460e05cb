package postgresdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"
)

const (
	postgresDriver = "pgx"
)

type DbConfig struct {
	DataSourceURL      string
	MigrationSourceURL string
}

type repoManager struct {
	pgxPool *pgxpool.Pool

	tradeRepository domain.TradeRepository
}

func NewService(dbConfig DbConfig) (ports.RepoManager, error) {
	if len(dbConfig.DataSourceURL) <= 0 {
		return nil, fmt.Errorf("missing data source url")
	}
	if len(dbConfig.MigrationSourceURL) <= 0 {
		return nil, fmt.Errorf("missing migration source url")
	}

	pgxPool, err := connect(dbConfig.DataSourceURL)
	if err != nil {
		return nil, err
	}

	if err = migrateDb(
		dbConfig.DataSourceURL, dbConfig.MigrationSourceURL,
	); err != nil {
		pgxPool.Close()
		return nil, err
	}

	rm := &repoManager{pgxPool: pgxPool}
	rm.tradeRepository = NewTradeRepositoryImpl(pgxPool, rm.execTx)
	return rm, nil
}

func (r *repoManager) TradeRepository() domain.TradeRepository {
	return r.tradeRepository
}

func (r *repoManager) Close() {
	r.pgxPool.Close()
}

func (r *repoManager) execTx(
	ctx context.Context,
	txBody func(pgx.Tx) error,
) error {
	conn, err := r.pgxPool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	// Rollback is a no-op if the tx has been already committed.
	defer func() {
		err := tx.Rollback(ctx)
		switch {
		case errors.Is(err, pgx.ErrTxClosed):
			return
		case err != nil:
			log.Errorf("unable to rollback db tx: %v", err)
		}
	}()

	if err := txBody(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func connect(dataSource string) (*pgxpool.Pool, error) {
	return pgxpool.Connect(context.Background(), dataSource)
}

func migrateDb(dataSource, migrationSourceUrl string) error {
	pg := postgres.Postgres{}

	d, err := pg.Open(dataSource)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationSourceUrl,
		postgresDriver,
		d,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}
