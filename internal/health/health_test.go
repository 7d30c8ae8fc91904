package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHTTPHandler(t *testing.T) {
	tests := []struct {
		name       string
		pinger     Pinger
		wantCode   int
		wantOK     bool
		wantStore  bool
		wantMsg    string
	}{
		{
			name:      "nil pinger reports ok",
			pinger:    nil,
			wantCode:  http.StatusOK,
			wantOK:    true,
			wantStore: true,
			wantMsg:   "ok",
		},
		{
			name:      "reachable store reports ok",
			pinger:    pingFunc(func(context.Context) error { return nil }),
			wantCode:  http.StatusOK,
			wantOK:    true,
			wantStore: true,
			wantMsg:   "ok",
		},
		{
			name:      "unreachable store reports 503",
			pinger:    pingFunc(func(context.Context) error { return errors.New("refused") }),
			wantCode:  http.StatusServiceUnavailable,
			wantOK:    false,
			wantStore: false,
			wantMsg:   "store ping failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()

			HTTPHandler(tt.pinger)(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var st Status
			if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
				t.Fatalf("body not JSON: %v", err)
			}
			if st.OK != tt.wantOK || st.Store != tt.wantStore || st.Message != tt.wantMsg {
				t.Errorf("status body = %+v", st)
			}
		})
	}
}
