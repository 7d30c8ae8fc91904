package deliver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/chimehook/chimehook/internal/alert"
)

const DLQType = "alert.dlq"

// DeadLetter snapshots a delivery that failed after its alert was
// already removed from the durable store. It exists for observability
// only: the alert is never re-queued.
type DeadLetter struct {
	Type         string            `json:"type"`    // "alert.dlq"
	Version      string            `json:"version"` // schema version
	At           string            `json:"at"`      // RFC3339 time the DLQ was emitted
	Reason       string            `json:"reason"`  // human/debug text
	HTTPStatus   int               `json:"http_status,omitempty"`
	LastError    string            `json:"last_error,omitempty"`
	Request      alert.Request     `json:"request"` // full alert snapshot
	TraceHeaders map[string]string `json:"trace_headers,omitempty"`
}

func NewDeadLetter(req alert.Request, out Outcome, reason string) DeadLetter {
	dl := DeadLetter{
		Type:       DLQType,
		Version:    "v1",
		At:         time.Now().Format(time.RFC3339Nano),
		Reason:     reason,
		HTTPStatus: out.StatusCode,
		Request:    req,
	}
	if !out.Success() {
		dl.LastError = out.Body
	}
	return dl
}

// DeadLetterPublisher ships dead letters to an NSQ topic.
type DeadLetterPublisher struct {
	producer *nsq.Producer
	topic    string
}

// NewDeadLetterPublisher connects a producer to nsqd at addr.
func NewDeadLetterPublisher(addr, topic string) (*DeadLetterPublisher, error) {
	producer, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("dead letter producer: %w", err)
	}
	return &DeadLetterPublisher{producer: producer, topic: topic}, nil
}

func (p *DeadLetterPublisher) Publish(dl DeadLetter) error {
	b, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	if err := p.producer.Publish(p.topic, b); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}

// Stop shuts the producer down.
func (p *DeadLetterPublisher) Stop() {
	p.producer.Stop()
}
