package connections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore resolves connections from a chimehook.connections
// table, the deployment-shared equivalent of the env-var store.
// Credentials can rotate, so records are read per lookup and never
// cached across calls.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore establishes a pgx pool against dsn and verifies it
// with a short ping.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Conn, error) {
	var c Conn
	err := s.pool.QueryRow(ctx, `
		SELECT coalesce(host, ''), coalesce(port, 0), coalesce(schema, ''), coalesce(password, '')
		FROM chimehook.connections
		WHERE conn_id = $1`, id).Scan(&c.Host, &c.Port, &c.Schema, &c.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conn{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Conn{}, fmt.Errorf("connection lookup %q: %w", id, err)
	}
	return c, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
