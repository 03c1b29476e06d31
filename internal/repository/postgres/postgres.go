package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"library-circulation/internal/domain"
	"library-circulation/internal/repository"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every repository can run
// standalone or inside a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store exposes the transactor plus the read-only handles. Inventory and
// loan writes are reachable only through a UnitOfWork.
type Store struct {
	repository.Transactor
	Loans     repository.LoanReader
	Policies  repository.FinePolicyRepository
	Reminders repository.ReminderRepository
}

func NewStore(db *sql.DB, fallback domain.FinePolicy) *Store {
	return &Store{
		Transactor: NewTransactor(db),
		Loans:      NewLoanRepository(db),
		Policies:   NewFinePolicyRepository(db, fallback),
		Reminders:  NewReminderRepository(sqlx.NewDb(db, driverName(db))),
	}
}

// driverName reports the sqlx bind style for db. Both supported drivers use $n.
func driverName(db *sql.DB) string {
	if _, ok := db.Driver().(*stdlib.Driver); ok {
		return "pgx"
	}
	return "postgres"
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects with either the "postgres" (lib/pq) or the "pgx" driver and
// verifies the connection.
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (*sql.DB, error) {
	switch driver {
	case "postgres", "pgx":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
