package connections

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestStaticStore(t *testing.T) {
	store := StaticStore{
		"gchat": {Password: "https://chat.example.com/v1/spaces/x/messages?key=k&token=t"},
	}

	c, err := store.Get(context.Background(), "gchat")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if c.Password == "" {
		t.Error("Get() returned empty password")
	}

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEnvStore(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		envKey  string
		envVal  string
		want    Conn
		wantErr error
	}{
		{
			name:   "redis style connection",
			id:     "redis_default",
			envKey: "CONN_REDIS_DEFAULT",
			envVal: "redis://:s3cret@cache.internal:6380/2",
			want:   Conn{Host: "cache.internal", Port: 6380, Schema: "2", Password: "s3cret"},
		},
		{
			name:   "webhook secret in password",
			id:     "google_chat",
			envKey: "CONN_GOOGLE_CHAT",
			envVal: "https://:https%3A%2F%2Fchat.googleapis.com%2Fv1%2Fspaces%2Fx%2Fmessages%3Fkey%3Dk@chat.googleapis.com",
			want:   Conn{Host: "chat.googleapis.com", Password: "https://chat.googleapis.com/v1/spaces/x/messages?key=k"},
		},
		{
			name:   "no port no password",
			id:     "bare",
			envKey: "CONN_BARE",
			envVal: "redis://localhost",
			want:   Conn{Host: "localhost"},
		},
		{
			name:    "unset env",
			id:      "nowhere",
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envKey != "" {
				os.Setenv(tt.envKey, tt.envVal)
				defer os.Unsetenv(tt.envKey)
			}

			got, err := EnvStore{}.Get(context.Background(), tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Get(%q) error = %v, want %v", tt.id, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get(%q) unexpected error: %v", tt.id, err)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
		})
	}
}

func TestEnvStoreCustomPrefix(t *testing.T) {
	os.Setenv("AIRFLOW_CONN_GCHAT", "https://:hook@chat.example.com")
	defer os.Unsetenv("AIRFLOW_CONN_GCHAT")

	c, err := EnvStore{Prefix: "AIRFLOW_CONN_"}.Get(context.Background(), "gchat")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if c.Password != "hook" {
		t.Errorf("Get() password = %q, want %q", c.Password, "hook")
	}
}
