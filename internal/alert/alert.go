// Package alert holds the data model shared by the scheduler, the
// drainer and the delivery client: the one-shot alert request, the
// sanitized run identifier used for chat threading and dedup, and the
// wall-clock fire time with its roll-forward policy.
package alert

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// runIDSanitizer strips the characters that commonly show up in
// timestamp-derived run IDs and are unsafe in thread keys. Replacing
// them keeps the same logical run addressed consistently no matter how
// the engine formatted the timestamp.
var runIDSanitizer = strings.NewReplacer("+", "-", ":", "-")

// SanitizeRunID replaces every "+" and ":" in runID with "-".
func SanitizeRunID(runID string) string {
	return runIDSanitizer.Replace(runID)
}

// DerivedRunID builds the canonical dedup/threading key for a run:
// "<entityID>-<sanitized runID>".
func DerivedRunID(entityID, runID string) string {
	return entityID + "-" + SanitizeRunID(runID)
}

// Request is a one-shot intent to deliver a chat message. Payload is
// passed through unmodified; FireAt, when set, defers delivery to the
// next occurrence of that wall-clock time.
//
// The JSON form of a Request is also the member stored in the durable
// set, so field order is fixed by this declaration: identical requests
// always serialize to identical bytes and dedup to one entry.
type Request struct {
	EntityID     string          `json:"entity_id"`
	RunID        string          `json:"run_id"`
	DerivedRunID string          `json:"derived_run_id"`
	ConnectionID string          `json:"connection_id"`
	Payload      json.RawMessage `json:"payload"`

	// FireAt is not part of the stored member; the fire time lives in
	// the member's score.
	FireAt *TimeOfDay `json:"-"`
}

// Derived returns a copy of the request with DerivedRunID filled in
// from EntityID and RunID.
func (r Request) Derived() Request {
	r.DerivedRunID = DerivedRunID(r.EntityID, r.RunID)
	return r
}

// Member returns the deterministic serialized form of the request used
// as the durable store member.
func (r Request) Member() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("serialize alert request: %w", err)
	}
	return b, nil
}

// ParseMember deserializes a durable store member back into a Request.
func ParseMember(member []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(member, &r); err != nil {
		return Request{}, fmt.Errorf("parse alert member: %w", err)
	}
	return r, nil
}

// TimeOfDay is a wall-clock time with no date attached, e.g. "18:30:00".
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
		vals[i] = n
	}
	td := TimeOfDay{Hour: vals[0], Minute: vals[1], Second: vals[2]}
	if td.Hour < 0 || td.Hour > 23 || td.Minute < 0 || td.Minute > 59 || td.Second < 0 || td.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return td, nil
}

// Next returns the next occurrence of the wall-clock time strictly
// after now: today if the time has not passed yet, otherwise the same
// time tomorrow.
func (t TimeOfDay) Next(now time.Time) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, t.Second, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Event is the opaque task-event context handed to alert handlers by
// the workflow engine's callbacks. Message builders turn it into a
// chat card; the scheduler only reads the identifiers.
type Event struct {
	EntityID    string    // workflow (DAG) identifier
	RunID       string    // execution identifier
	TaskID      string
	TaskName    string
	Description string
	Hostname    string
	StartedAt   time.Time
	Attempt     int
	MaxAttempts int
}
