// Package scheduler is the entry point for alert requests: deliver
// immediately when no fire time is set, otherwise persist the request
// into the durable store keyed by its effective fire time.
package scheduler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/chimehook/chimehook/internal/alert"
	"github.com/chimehook/chimehook/internal/connections"
	"github.com/chimehook/chimehook/internal/deliver"
	"github.com/chimehook/chimehook/internal/logging"
	"github.com/chimehook/chimehook/internal/metrics"
	"github.com/chimehook/chimehook/internal/resolver"
	"github.com/chimehook/chimehook/internal/tracing"
)

// Store is the slice of the durable store the scheduler needs: the
// idempotent insert.
type Store interface {
	Add(ctx context.Context, member string, score float64) error
}

// Outcome reports which branch Schedule took. Exactly one of the two
// halves is meaningful: Delivery when the alert went out now, FireAt
// when it was deferred.
type Outcome struct {
	Deferred bool
	FireAt   time.Time
	Delivery deliver.Outcome
}

// Scheduler routes alert requests. The zero value is not usable; build
// one with New.
type Scheduler struct {
	conns  connections.Store
	store  Store
	client *deliver.Client
	log    *logging.Logger
	now    func() time.Time
}

// Option tweaks a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the wall clock, for testing the roll-forward
// policy.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New builds a Scheduler over the given connection lookup, durable
// store and delivery client.
func New(conns connections.Store, store Store, client *deliver.Client, log *logging.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = logging.New("chimehook")
	}
	s := &Scheduler{
		conns:  conns,
		store:  store,
		client: client,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule accepts req and either delivers it now or defers it.
//
// Structural failures (unknown connection, store unreachable) are
// returned; an invalid resolved URL is returned as
// resolver.ErrInvalidURL with delivery skipped; a non-200 delivery is
// not an error, it is reported through the outcome's status code.
func (s *Scheduler) Schedule(ctx context.Context, req alert.Request) (Outcome, error) {
	req = req.Derived()

	ctx, span := tracing.StartSpan(ctx, "scheduler.schedule",
		attribute.String("entity_id", req.EntityID),
		attribute.String("derived_run_id", req.DerivedRunID),
		attribute.String("connection_id", req.ConnectionID),
		attribute.Bool("deferred", req.FireAt != nil),
	)
	defer span.End()

	if req.FireAt == nil {
		return s.deliverNow(ctx, req)
	}
	return s.deferred(ctx, req)
}

func (s *Scheduler) deliverNow(ctx context.Context, req alert.Request) (Outcome, error) {
	url, err := resolver.WebhookURL(ctx, s.conns, req.ConnectionID, req.DerivedRunID)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		s.log.WithAlert(ctx, req.EntityID, req.RunID, req.ConnectionID).
			WithError(err).
			Error("webhook resolution failed, delivery skipped")
		return Outcome{}, err
	}

	metrics.AlertsScheduledTotal.WithLabelValues("immediate").Inc()
	s.log.WithAlert(ctx, req.EntityID, req.RunID, req.ConnectionID).Info("sending alert")
	out := s.client.Deliver(ctx, req.Payload, url)
	return Outcome{Delivery: out}, nil
}

func (s *Scheduler) deferred(ctx context.Context, req alert.Request) (Outcome, error) {
	target := req.FireAt.Next(s.now())

	member, err := req.Member()
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return Outcome{}, err
	}
	if err := s.store.Add(ctx, string(member), float64(target.Unix())); err != nil {
		tracing.SetSpanError(ctx, err)
		return Outcome{}, err
	}

	metrics.AlertsScheduledTotal.WithLabelValues("deferred").Inc()
	s.log.WithAlert(ctx, req.EntityID, req.RunID, req.ConnectionID).
		WithField("fire_at", target.Format(time.RFC3339)).
		Info("alert scheduled")
	return Outcome{Deferred: true, FireAt: target}, nil
}
