package store

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/chimehook/chimehook/internal/connections"
)

func TestMemorySemantics(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate member is one entry", func(t *testing.T) {
		m := NewMemory()
		if err := m.Add(ctx, `{"a":1}`, 100); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		if err := m.Add(ctx, `{"a":1}`, 100); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		n, err := m.Backlog(ctx)
		if err != nil {
			t.Fatalf("Backlog() error: %v", err)
		}
		if n != 1 {
			t.Errorf("Backlog() = %d after duplicate add, want 1", n)
		}
	})

	t.Run("pop due ascending and removes", func(t *testing.T) {
		m := NewMemory()
		_ = m.Add(ctx, "late", 300)
		_ = m.Add(ctx, "early", 100)
		_ = m.Add(ctx, "mid", 200)
		_ = m.Add(ctx, "future", 900)

		got, err := m.PopDue(ctx, 300)
		if err != nil {
			t.Fatalf("PopDue() error: %v", err)
		}
		want := []string{"early", "mid", "late"}
		if len(got) != len(want) {
			t.Fatalf("PopDue() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("PopDue()[%d] = %q, want %q", i, got[i], want[i])
			}
		}

		n, _ := m.Backlog(ctx)
		if n != 1 {
			t.Errorf("Backlog() after pop = %d, want 1 (only the future member)", n)
		}

		// nothing due twice
		again, _ := m.PopDue(ctx, 300)
		if len(again) != 0 {
			t.Errorf("second PopDue() = %v, want empty", again)
		}
	})

	t.Run("empty store yields empty slice", func(t *testing.T) {
		m := NewMemory()
		got, err := m.PopDue(ctx, 1e12)
		if err != nil {
			t.Fatalf("PopDue() error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("PopDue() on empty store = %v, want empty", got)
		}
	})
}

func TestNewClientDefaults(t *testing.T) {
	tests := []struct {
		name     string
		conn     connections.Conn
		wantAddr string
	}{
		{
			name:     "defaults applied",
			conn:     connections.Conn{Host: "cache"},
			wantAddr: "cache:6379",
		},
		{
			name:     "explicit port kept",
			conn:     connections.Conn{Host: "cache", Port: 6380, Schema: "3"},
			wantAddr: "cache:6380",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.conn)
			defer client.Close()
			if got := client.Options().Addr; got != tt.wantAddr {
				t.Errorf("NewClient() addr = %q, want %q", got, tt.wantAddr)
			}
		})
	}

	t.Run("schema selects database", func(t *testing.T) {
		client := NewClient(connections.Conn{Host: "h", Schema: "2"})
		defer client.Close()
		if client.Options().DB != 2 {
			t.Errorf("NewClient() DB = %d, want 2", client.Options().DB)
		}
	})
}

// TestRedisStore exercises the real sorted-set operations. It needs a
// running Redis; set TEST_REDIS_ADDR (e.g. localhost:6379) to enable.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	key := "scheduled_alerts_test"
	client.Del(ctx, key)
	t.Cleanup(func() { client.Del(ctx, key) })

	s := New(client, key)

	if err := s.Add(ctx, `{"id":"a"}`, 100); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := s.Add(ctx, `{"id":"a"}`, 100); err != nil {
		t.Fatalf("Add() duplicate error: %v", err)
	}
	if err := s.Add(ctx, `{"id":"b"}`, 50); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := s.Add(ctx, `{"id":"c"}`, 900); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	n, err := s.Backlog(ctx)
	if err != nil {
		t.Fatalf("Backlog() error: %v", err)
	}
	if n != 3 {
		t.Errorf("Backlog() = %d, want 3 (duplicate deduped)", n)
	}

	got, err := s.PopDue(ctx, 100)
	if err != nil {
		t.Fatalf("PopDue() error: %v", err)
	}
	want := []string{`{"id":"b"}`, `{"id":"a"}`}
	if len(got) != len(want) {
		t.Fatalf("PopDue() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PopDue()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error: %v", err)
	}
	if len(entries) != 1 || entries[0].Member != `{"id":"c"}` {
		t.Errorf("Entries() after pop = %v, want only the future member", entries)
	}
}
