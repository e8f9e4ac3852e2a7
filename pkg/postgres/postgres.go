// Package postgres owns the database handle shared by the audit and
// consent layers.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN          string        `envconfig:"DSN" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnLifetime time.Duration `envconfig:"CONN_LIFETIME" default:"30m"`
	PingTimeout  time.Duration `envconfig:"PING_TIMEOUT" default:"5s"`
}

// New opens a bun handle over pgdriver and verifies connectivity before
// returning it.
func New(ctx context.Context, cfg Config) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnLifetime)

	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
