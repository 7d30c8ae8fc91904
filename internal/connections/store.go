// Package connections resolves opaque connection identifiers to
// endpoint and credential material. Chat webhook endpoints are stored
// as the connection secret; the Redis store reuses the same record
// shape for host/port/db/password.
package connections

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no connection exists for an identifier.
var ErrNotFound = errors.New("connection not found")

// Conn is one resolved connection record. For chat webhooks the full
// endpoint URL lives in Password; for Redis, Schema carries the
// numeric database index.
type Conn struct {
	Host     string
	Port     int
	Schema   string
	Password string
}

// Store looks connection records up by identifier.
type Store interface {
	Get(ctx context.Context, id string) (Conn, error)
}

// StaticStore serves connections from a fixed map. Used in tests and
// by the CLI when the caller supplies endpoints directly.
type StaticStore map[string]Conn

func (s StaticStore) Get(_ context.Context, id string) (Conn, error) {
	c, ok := s[id]
	if !ok {
		return Conn{}, ErrNotFound
	}
	return c, nil
}
