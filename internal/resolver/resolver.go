// Package resolver turns a connection reference into a deliverable
// webhook URL: base endpoint from the connection secret, thread key
// appended so related messages group into one conversation, scheme
// forced to HTTPS.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/chimehook/chimehook/internal/connections"
)

// ErrInvalidURL is returned when the resolved URL lacks a scheme or a
// network location after normalization. Delivery must be skipped.
var ErrInvalidURL = errors.New("invalid webhook url")

// replyOption makes the chat API thread the message under thread_key,
// falling back to a new thread when the key is unknown.
// https://developers.google.com/workspace/chat/api/reference/rest/v1/spaces.messages/create#MessageReplyOption
const replyOption = "REPLY_MESSAGE_FALLBACK_TO_NEW_THREAD"

// WebhookURL resolves connID and appends the thread suffix for
// correlationKey. The suffix is appended even when correlationKey is
// empty so the reply option always applies.
func WebhookURL(ctx context.Context, store connections.Store, connID, correlationKey string) (string, error) {
	conn, err := store.Get(ctx, connID)
	if err != nil {
		return "", fmt.Errorf("resolve webhook %q: %w", connID, err)
	}
	full := conn.Password + "&thread_key=" + correlationKey + "&messageReplyOption=" + replyOption
	full = EnsureHTTPS(full)
	if !validURL(full) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, full)
	}
	return full, nil
}

// EnsureHTTPS rewrites the URL scheme to https when it is anything
// else, leaving host, path and query untouched. Unparseable input is
// returned as-is and left for validation to reject.
func EnsureHTTPS(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Scheme == "https" {
		return raw
	}
	u.Scheme = "https"
	return u.String()
}

// validURL reports whether the URL has both a scheme and a network
// location.
func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
