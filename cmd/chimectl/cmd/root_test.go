package cmd

import (
	"context"
	"os"
	"testing"
)

func TestGetConnections(t *testing.T) {
	origConnID := connID
	origWebhookURL := webhookURL
	defer func() {
		connID = origConnID
		webhookURL = origWebhookURL
	}()

	os.Setenv("CONN_REDIS_DEFAULT", "redis://:pw@redis-host:6380/2")
	defer os.Unsetenv("CONN_REDIS_DEFAULT")

	t.Run("webhook override serves the chat connection", func(t *testing.T) {
		connID = "gchat"
		webhookURL = "https://chat.example.com/v1/spaces/x/messages?key=k"

		c, err := getConnections().Get(context.Background(), "gchat")
		if err != nil {
			t.Fatalf("Get(gchat) error: %v", err)
		}
		if c.Password != webhookURL {
			t.Errorf("Get(gchat) password = %q, want the --webhook-url value", c.Password)
		}
	})

	t.Run("override still resolves the store connection from env", func(t *testing.T) {
		connID = "gchat"
		webhookURL = "https://chat.example.com/v1/spaces/x/messages?key=k"

		c, err := getConnections().Get(context.Background(), "redis_default")
		if err != nil {
			t.Fatalf("Get(redis_default) error: %v", err)
		}
		if c.Host != "redis-host" || c.Port != 6380 || c.Schema != "2" || c.Password != "pw" {
			t.Errorf("Get(redis_default) = %+v, want env-backed record", c)
		}
	})

	t.Run("no override uses the env store", func(t *testing.T) {
		webhookURL = ""

		c, err := getConnections().Get(context.Background(), "redis_default")
		if err != nil {
			t.Fatalf("Get(redis_default) error: %v", err)
		}
		if c.Host != "redis-host" {
			t.Errorf("Get(redis_default) host = %q, want redis-host", c.Host)
		}
	})
}
