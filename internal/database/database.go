package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
)

// OpenDBWithDSN creates and configures the MySQL connection pool.
// parseTime, multiStatements and clientFoundRows are forced on: the store
// scans DATETIME into time.Time, migration files hold several statements,
// and an UPDATE that matches a row without changing it must still count.
func OpenDBWithDSN(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	// 1. Normalise the DSN
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.ClientFoundRows = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}

	// 2. Open a new connection pool.
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}

	// 3. Configure the connection pool settings.
	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 4. Ping the database to verify the connection.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql at %s: %w", cfg.Addr, err)
	}

	slog.Info("database connection pool established", "addr", cfg.Addr, "db", cfg.DBName)
	return db, nil
}
