package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chimehook/chimehook/internal/alert"
	"github.com/chimehook/chimehook/internal/card"
)

// Builder turns a task event into the chat payload for that event.
type Builder func(ev alert.Event) (json.RawMessage, error)

// Handler is the configured callback the workflow engine invokes on a
// task lifecycle event. It is built once with its connection reference
// and optional delay; Handle does the per-event work.
type Handler struct {
	sched  *Scheduler
	connID string
	delay  *alert.TimeOfDay
	build  Builder
}

// NewHandler wires a handler to sched. A nil delay means deliver
// immediately.
func NewHandler(sched *Scheduler, connID string, delay *alert.TimeOfDay, build Builder) *Handler {
	return &Handler{sched: sched, connID: connID, delay: delay, build: build}
}

// NewSuccessHandler builds a handler that sends the task-success card,
// with log deep links rooted at logBaseURL.
func NewSuccessHandler(sched *Scheduler, connID string, delay *alert.TimeOfDay, logBaseURL string) *Handler {
	return NewHandler(sched, connID, delay, func(ev alert.Event) (json.RawMessage, error) {
		return card.Success(ev, logBaseURL)
	})
}

// NewFailureHandler builds a handler that sends the task-failure card.
func NewFailureHandler(sched *Scheduler, connID string, delay *alert.TimeOfDay, logBaseURL string) *Handler {
	return NewHandler(sched, connID, delay, func(ev alert.Event) (json.RawMessage, error) {
		return card.Failure(ev, logBaseURL)
	})
}

// Handle builds the payload for ev and schedules it.
func (h *Handler) Handle(ctx context.Context, ev alert.Event) (Outcome, error) {
	payload, err := h.build(ev)
	if err != nil {
		return Outcome{}, fmt.Errorf("build alert payload: %w", err)
	}
	req := alert.Request{
		EntityID:     ev.EntityID,
		RunID:        ev.RunID,
		ConnectionID: h.connID,
		Payload:      payload,
		FireAt:       h.delay,
	}
	return h.sched.Schedule(ctx, req)
}
