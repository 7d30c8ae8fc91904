// Package drain runs the recurring sweep over the durable store:
// claim everything that is due, deliver each claimed alert once, and
// record the outcomes. Removal happens before delivery, so overlapping
// drain cycles can never deliver the same alert twice; the price is
// that a delivery failing after its claim is only logged (and
// optionally dead-lettered), never re-queued.
package drain

import (
	"context"
	"errors"
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

// Store is the slice of the durable store the drainer needs: the
// atomic claim of due members.
type Store interface {
	PopDue(ctx context.Context, maxScore float64) ([]string, error)
}

// DeadLetters receives failed post-claim deliveries. Implementations
// must tolerate being called from sequential drain cycles.
type DeadLetters interface {
	Publish(dl deliver.DeadLetter) error
}

// Drainer sweeps the store on behalf of a periodic trigger.
type Drainer struct {
	store  Store
	conns  connections.Store
	client *deliver.Client
	dlq    DeadLetters // nil disables dead-letter publishing
	log    *logging.Logger
}

// New builds a Drainer. dlq may be nil.
func New(store Store, conns connections.Store, client *deliver.Client, dlq DeadLetters, log *logging.Logger) *Drainer {
	if log == nil {
		log = logging.New("chimehook-drainer")
	}
	return &Drainer{store: store, conns: conns, client: client, dlq: dlq, log: log}
}

// DrainDue claims every alert due at now and delivers each one,
// earliest fire time first. An empty or not-yet-due store yields an
// empty slice and no error.
//
// Per-alert failures after the claim (corrupt member, unknown
// connection, invalid URL) are absorbed: logged, counted, joined into
// the returned error, and the sweep moves on. A store failure aborts
// the claim phase, but members already claimed before the failure are
// gone from the store and are still delivered.
func (d *Drainer) DrainDue(ctx context.Context, now time.Time) ([]deliver.Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "drain.cycle",
		attribute.Int64("now_epoch", now.Unix()),
	)
	defer span.End()

	metrics.DrainCyclesTotal.Inc()

	members, storeErr := d.store.PopDue(ctx, float64(now.Unix()))
	if storeErr != nil {
		tracing.SetSpanError(ctx, storeErr)
		if len(members) == 0 {
			return nil, storeErr
		}
	}
	metrics.DrainedAlertsTotal.Add(float64(len(members)))
	span.SetAttributes(attribute.Int("due_count", len(members)))

	outcomes := make([]deliver.Outcome, 0, len(members))
	errs := storeErr
	for _, m := range members {
		out, err := d.deliverOne(ctx, m)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, errs
}

func (d *Drainer) deliverOne(ctx context.Context, member string) (deliver.Outcome, error) {
	req, err := alert.ParseMember([]byte(member))
	if err != nil {
		d.log.WithContext(ctx).WithError(err).WithField("member", member).Error("corrupt scheduled alert dropped")
		metrics.DeliveriesTotal.WithLabelValues("corrupt").Inc()
		return deliver.Outcome{}, err
	}

	url, err := resolver.WebhookURL(ctx, d.conns, req.ConnectionID, req.DerivedRunID)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, resolver.ErrInvalidURL) {
			outcome = "invalid_url"
		}
		metrics.DeliveriesTotal.WithLabelValues(outcome).Inc()
		d.log.WithAlert(ctx, req.EntityID, req.RunID, req.ConnectionID).
			WithError(err).
			Error("scheduled alert unroutable, delivery skipped")
		d.deadLetter(ctx, req, deliver.Outcome{}, "unroutable after claim: "+err.Error())
		return deliver.Outcome{}, err
	}

	d.log.WithAlert(ctx, req.EntityID, req.RunID, req.ConnectionID).Info("delivering scheduled alert")
	out := d.client.Deliver(ctx, req.Payload, url)
	if !out.Success() {
		d.deadLetter(ctx, req, out, "delivery failed after claim")
	}
	return out, nil
}

// deadLetter publishes the failure snapshot when a publisher is
// configured. Publishing is best effort: the alert is gone from the
// store either way.
func (d *Drainer) deadLetter(ctx context.Context, req alert.Request, out deliver.Outcome, reason string) {
	if d.dlq == nil {
		return
	}
	dl := deliver.NewDeadLetter(req, out, reason)
	dl.TraceHeaders = tracing.CarrierHeaders(ctx)
	if err := d.dlq.Publish(dl); err != nil {
		d.log.WithAlert(ctx, req.EntityID, req.RunID, req.ConnectionID).
			WithError(err).
			Error("dead letter publish failed")
		return
	}
	metrics.DeadLettersTotal.Inc()
}
