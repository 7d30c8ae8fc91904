// Package deliver performs the outbound webhook POST and classifies
// the result. It never retries; retry policy, where it exists at all,
// belongs to callers.
package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/chimehook/chimehook/internal/logging"
	"github.com/chimehook/chimehook/internal/metrics"
	"github.com/chimehook/chimehook/internal/tracing"
)

// maxBodyBytes caps how much of an error response body is retained for
// logging.
const maxBodyBytes = 8 << 10

// Outcome is the result of one delivery attempt. A transport failure
// surfaces as StatusCode 0 with the error text in Body.
type Outcome struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
}

// Success reports whether the attempt got the one status the chat API
// returns on acceptance.
func (o Outcome) Success() bool {
	return o.StatusCode == http.StatusOK
}

// Client posts JSON payloads to webhook URLs.
type Client struct {
	http *http.Client
	log  *logging.Logger
}

// Option tweaks a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, so callers can
// supply their own transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a delivery client with the given request timeout.
func NewClient(timeout time.Duration, log *logging.Logger, opts ...Option) *Client {
	if log == nil {
		log = logging.New("chimehook")
	}
	c := &Client{
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver POSTs payload to url as application/json and returns the
// outcome. One log line is emitted per attempt.
func (c *Client) Deliver(ctx context.Context, payload json.RawMessage, url string) Outcome {
	ctx, span := tracing.StartSpan(ctx, "deliver.post")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		tracing.SetSpanError(ctx, err)
		c.log.WithContext(ctx).WithError(err).Error("build delivery request failed")
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		return Outcome{StatusCode: 0, Body: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		c.log.WithContext(ctx).WithError(err).Error("delivery transport error")
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		return Outcome{StatusCode: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Int64("http.latency_ms", latency.Milliseconds()),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		c.log.WithContext(ctx).
			WithField("status", resp.StatusCode).
			WithField("body", string(body)).
			Error("message delivery failed")
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		return Outcome{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.log.WithContext(ctx).
		WithField("status", strconv.Itoa(resp.StatusCode)).
		Info("message delivered")
	metrics.DeliveriesTotal.WithLabelValues("delivered").Inc()
	return Outcome{StatusCode: resp.StatusCode}
}
