// Package db is the relational layer over Postgres via bun. It owns the
// business tables (merchants, users, conversations, messages, bookings,
// portfolios, merchant documents) and exposes the narrow operations the
// agents and the HTTP layer need.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var ErrNotFound = errors.New("record not found")

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

type Store struct {
	db      *bun.DB
	timeout time.Duration
}

func Open(cfg Config) (*Store, error) {
	dsn := strings.TrimSpace(cfg.URL)
	if dsn == "" {
		return nil, errors.New("database url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &Store{
		db:      bun.NewDB(sqldb, pgdialect.New()),
		timeout: timeout,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates missing tables. Safe to run on every start.
func (s *Store) Init(ctx context.Context) error {
	models := []any{
		(*Merchant)(nil),
		(*User)(nil),
		(*Conversation)(nil),
		(*Message)(nil),
		(*Booking)(nil),
		(*Portfolio)(nil),
		(*MerchantDocument)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// withTimeout bounds every store call so a slow database surfaces as a
// tool-level failure instead of hanging an agent turn.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
