package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/chimehook/chimehook/internal/config"
)

var reqCount atomic.Int64

type chatResponse struct {
	Name   string      `json:"name"`
	Thread *chatThread `json:"thread,omitempty"`
}

type chatThread struct {
	ThreadKey string `json:"threadKey"`
}

func main() {
	cfg := config.FromEnv()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handleMessage(w, r, cfg)
	})

	srv := &http.Server{
		Addr:         cfg.FakeChat.Port,
		Handler:      mux,
		ReadTimeout:  cfg.FakeChat.ReadTimeout,
		WriteTimeout: cfg.FakeChat.WriteTimeout,
		IdleTimeout:  cfg.FakeChat.IdleTimeout,
	}
	log.Printf("fake-chat listening on %s", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}

// handleMessage mimics the Google Chat webhook message endpoint: it
// accepts any POST path, requires a JSON body, and echoes the thread
// key back the way the real API does.
func handleMessage(w http.ResponseWriter, r *http.Request, cfg config.Config) {
	n := reqCount.Add(1)
	b, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	if cfg.FakeChat.ResponseDelayMS > 0 {
		time.Sleep(time.Duration(cfg.FakeChat.ResponseDelayMS) * time.Millisecond)
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !json.Valid(b) {
		log.Printf("fake-chat REJECT %s body not JSON: %s", r.URL.Path, truncate(string(b), 160))
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	// Simulate flakiness: first N requests -> 500
	if n <= int64(cfg.FakeChat.FailFirstN) {
		log.Printf("FAILING (%d/%d) %s body=%s", n, cfg.FakeChat.FailFirstN, r.URL.Path, truncate(string(b), 160))
		http.Error(w, "temporary failure", http.StatusInternalServerError)
		return
	}

	threadKey := r.URL.Query().Get("thread_key")
	log.Printf("fake-chat OK %s thread_key=%q reply=%q body=%s",
		r.URL.Path, threadKey, r.URL.Query().Get("messageReplyOption"), truncate(string(b), 160))

	resp := chatResponse{Name: fmt.Sprintf("spaces/fake/messages/%d", n)}
	if threadKey != "" {
		resp.Thread = &chatThread{ThreadKey: threadKey}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// truncate truncates a string to the specified length and adds an ellipsis if truncated
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
