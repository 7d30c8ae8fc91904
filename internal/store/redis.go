// Package store holds deferred alerts in a score-ordered durable set
// until they are due. The score is the fire time in epoch seconds; the
// member is the serialized alert request, so identical requests dedup
// to a single entry.
package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/chimehook/chimehook/internal/connections"
)

// DefaultKey is the sorted-set key holding scheduled alerts.
const DefaultKey = "scheduled_alerts"

// Entry is one scheduled alert as stored: serialized request plus its
// fire-time score.
type Entry struct {
	Member string
	Score  float64
}

// Redis is the sorted-set-backed durable store.
type Redis struct {
	client *redis.Client
	key    string
}

// New wraps client. An empty key selects DefaultKey.
func New(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key}
}

// NewClient builds a Redis client from a resolved connection record,
// applying the conventional defaults: port 6379 and database index 0
// when the schema is absent.
func NewClient(conn connections.Conn) *redis.Client {
	port := conn.Port
	if port == 0 {
		port = 6379
	}
	db := 0
	if conn.Schema != "" {
		if n, err := strconv.Atoi(conn.Schema); err == nil {
			db = n
		}
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", conn.Host, port),
		Password: conn.Password,
		DB:       db,
	})
}

// Add inserts member with the given score. Re-adding an identical
// member is a no-op for set membership, which is what makes scheduling
// idempotent by content.
func (s *Redis) Add(ctx context.Context, member string, score float64) error {
	if err := s.client.ZAdd(ctx, s.key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("scheduled alert store add: %w", err)
	}
	return nil
}

// PopDue returns members with score <= maxScore in ascending score
// order, removing each before it is handed out. The per-member ZREM is
// the claim: under concurrent drains exactly one caller observes the
// removal and takes ownership, so a member is never handed out twice.
func (s *Redis) PopDue(ctx context.Context, maxScore float64) ([]string, error) {
	members, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatFloat(maxScore, 'f', -1, 64),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scheduled alert store range: %w", err)
	}

	claimed := make([]string, 0, len(members))
	for _, m := range members {
		removed, err := s.client.ZRem(ctx, s.key, m).Result()
		if err != nil {
			return claimed, fmt.Errorf("scheduled alert store remove: %w", err)
		}
		if removed == 1 {
			claimed = append(claimed, m)
		}
	}
	return claimed, nil
}

// Entries returns the full store contents ascending by score, without
// removing anything. Used for operator inspection and the backlog
// gauge detail.
func (s *Redis) Entries(ctx context.Context) ([]Entry, error) {
	zs, err := s.client.ZRangeByScoreWithScores(ctx, s.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scheduled alert store entries: %w", err)
	}
	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		m, _ := z.Member.(string)
		entries = append(entries, Entry{Member: m, Score: z.Score})
	}
	return entries, nil
}

// Backlog returns the number of waiting alerts.
func (s *Redis) Backlog(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("scheduled alert store card: %w", err)
	}
	return n, nil
}

// Ping verifies the store connection.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
