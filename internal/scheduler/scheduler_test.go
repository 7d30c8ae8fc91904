package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chimehook/chimehook/internal/alert"
	"github.com/chimehook/chimehook/internal/connections"
	"github.com/chimehook/chimehook/internal/deliver"
	"github.com/chimehook/chimehook/internal/logging"
	"github.com/chimehook/chimehook/internal/resolver"
	"github.com/chimehook/chimehook/internal/store"
)

func quietLogger() *logging.Logger {
	log := logging.New("test")
	log.SetOutput(io.Discard)
	return log
}

func newScheduler(conns connections.Store, st Store, opts ...Option) *Scheduler {
	log := quietLogger()
	return New(conns, st, deliver.NewClient(2*time.Second, log), log, opts...)
}

// newDeliveryScheduler wires the scheduler to srv's own client so
// deliveries trust the test server's TLS certificate.
func newDeliveryScheduler(conns connections.Store, st Store, srv *httptest.Server, opts ...Option) *Scheduler {
	log := quietLogger()
	httpc := srv.Client()
	httpc.Timeout = 2 * time.Second
	client := deliver.NewClient(2*time.Second, log, deliver.WithHTTPClient(httpc))
	return New(conns, st, client, log, opts...)
}

func TestScheduleImmediate(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.URL.Query().Get("thread_key"); got != "billing-r-1" {
			t.Errorf("thread_key = %q, want %q", got, "billing-r-1")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	conns := connections.StaticStore{"gchat": {Password: srv.URL + "/messages?key=k"}}
	sched := newDeliveryScheduler(conns, store.NewMemory(), srv)

	out, err := sched.Schedule(context.Background(), alert.Request{
		EntityID:     "billing",
		RunID:        "r+1",
		ConnectionID: "gchat",
		Payload:      json.RawMessage(`{"text":"hi"}`),
	})
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if out.Deferred {
		t.Error("Schedule() deferred an immediate request")
	}
	if out.Delivery.StatusCode != 200 {
		t.Errorf("Schedule() status = %d, want 200", out.Delivery.StatusCode)
	}
	if hits.Load() != 1 {
		t.Errorf("delivery endpoint hit %d times, want 1", hits.Load())
	}
}

func TestScheduleInvalidURLSkipsDelivery(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	// secret with an empty host resolves to an invalid URL
	conns := connections.StaticStore{"bad": {Password: "https:///messages?key=k"}}
	sched := newScheduler(conns, store.NewMemory())

	_, err := sched.Schedule(context.Background(), alert.Request{
		EntityID:     "d",
		RunID:        "r",
		ConnectionID: "bad",
		Payload:      json.RawMessage(`{}`),
	})
	if !errors.Is(err, resolver.ErrInvalidURL) {
		t.Errorf("Schedule() error = %v, want ErrInvalidURL", err)
	}
	if hits.Load() != 0 {
		t.Errorf("delivery attempted %d times despite invalid URL", hits.Load())
	}
}

func TestScheduleUnknownConnection(t *testing.T) {
	sched := newScheduler(connections.StaticStore{}, store.NewMemory())

	_, err := sched.Schedule(context.Background(), alert.Request{
		EntityID:     "d",
		RunID:        "r",
		ConnectionID: "nope",
		Payload:      json.RawMessage(`{}`),
	})
	if !errors.Is(err, connections.ErrNotFound) {
		t.Errorf("Schedule() error = %v, want ErrNotFound", err)
	}
}

func TestScheduleDeferred(t *testing.T) {
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	sched := newScheduler(connections.StaticStore{}, mem, WithClock(func() time.Time { return now }))

	fireAt := &alert.TimeOfDay{Hour: 10}
	req := alert.Request{
		EntityID:     "billing",
		RunID:        "r+1",
		ConnectionID: "gchat",
		Payload:      json.RawMessage(`{"text":"hi"}`),
		FireAt:       fireAt,
	}

	out, err := sched.Schedule(context.Background(), req)
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if !out.Deferred {
		t.Fatal("Schedule() did not defer")
	}
	wantFire := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	if !out.FireAt.Equal(wantFire) {
		t.Errorf("Schedule() FireAt = %v, want %v", out.FireAt, wantFire)
	}

	// identical request again: still one member
	if _, err := sched.Schedule(context.Background(), req); err != nil {
		t.Fatalf("Schedule() repeat error: %v", err)
	}
	entries, err := mem.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("store holds %d members after duplicate schedule, want 1", len(entries))
	}
	if entries[0].Score != float64(wantFire.Unix()) {
		t.Errorf("member score = %v, want %v", entries[0].Score, float64(wantFire.Unix()))
	}

	stored, err := alert.ParseMember([]byte(entries[0].Member))
	if err != nil {
		t.Fatalf("stored member not parseable: %v", err)
	}
	if stored.DerivedRunID != "billing-r-1" {
		t.Errorf("stored derived run id = %q, want billing-r-1", stored.DerivedRunID)
	}
}

func TestScheduleDeferredRollForward(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before the wall-clock time fires today",
			now:  time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "after the wall-clock time rolls to tomorrow",
			now:  time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC),
			want: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := newScheduler(connections.StaticStore{}, store.NewMemory(),
				WithClock(func() time.Time { return tt.now }))

			out, err := sched.Schedule(context.Background(), alert.Request{
				EntityID:     "d",
				RunID:        "r",
				ConnectionID: "gchat",
				Payload:      json.RawMessage(`{}`),
				FireAt:       &alert.TimeOfDay{Hour: 10},
			})
			if err != nil {
				t.Fatalf("Schedule() error: %v", err)
			}
			if !out.FireAt.Equal(tt.want) {
				t.Errorf("FireAt = %v, want %v", out.FireAt, tt.want)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	var received json.RawMessage
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received = body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	conns := connections.StaticStore{"gchat": {Password: srv.URL + "/messages?key=k"}}
	sched := newDeliveryScheduler(conns, store.NewMemory(), srv)

	ev := alert.Event{
		EntityID:  "billing",
		RunID:     "run-1",
		TaskID:    "extract",
		TaskName:  "Extract invoices",
		StartedAt: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC),
	}

	t.Run("immediate success handler delivers card", func(t *testing.T) {
		h := NewSuccessHandler(sched, "gchat", nil, "https://airflow.example.com")
		out, err := h.Handle(context.Background(), ev)
		if err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
		if !out.Delivery.Success() {
			t.Errorf("Handle() delivery status = %d, want 200", out.Delivery.StatusCode)
		}
		if received == nil || !json.Valid(received) {
			t.Fatalf("received payload invalid: %s", received)
		}
	})

	t.Run("delayed handler defers", func(t *testing.T) {
		mem := store.NewMemory()
		delayed := newScheduler(conns, mem)
		h := NewFailureHandler(delayed, "gchat", &alert.TimeOfDay{Hour: 23, Minute: 59, Second: 59}, "")
		out, err := h.Handle(context.Background(), ev)
		if err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
		if !out.Deferred {
			t.Error("Handle() with delay did not defer")
		}
		n, _ := mem.Backlog(context.Background())
		if n != 1 {
			t.Errorf("store backlog = %d, want 1", n)
		}
	})
}
