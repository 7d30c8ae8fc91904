package connections

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// DefaultEnvPrefix is the prefix EnvStore prepends to the uppercased
// connection ID when looking up the environment.
const DefaultEnvPrefix = "CONN_"

// EnvStore resolves connections from environment variables holding a
// connection URI, e.g.
//
//	CONN_GOOGLE_CHAT=https://:url-encoded-webhook@chat.googleapis.com
//	CONN_REDIS_DEFAULT=redis://:secret@redis-host:6379/2
//
// The password component carries the secret (for chat connections the
// whole webhook URL, URL-encoded); the path carries the schema.
type EnvStore struct {
	// Prefix overrides DefaultEnvPrefix when non-empty.
	Prefix string
}

func (s EnvStore) Get(_ context.Context, id string) (Conn, error) {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	key := prefix + strings.ToUpper(id)
	raw := os.Getenv(key)
	if raw == "" {
		return Conn{}, fmt.Errorf("%w: %s (env %s unset)", ErrNotFound, id, key)
	}
	return parseURI(raw)
}

func parseURI(raw string) (Conn, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Conn{}, fmt.Errorf("parse connection uri: %w", err)
	}
	c := Conn{
		Host:   u.Hostname(),
		Schema: strings.TrimPrefix(u.Path, "/"),
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Conn{}, fmt.Errorf("parse connection port %q: %w", p, err)
		}
		c.Port = n
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	return c, nil
}
