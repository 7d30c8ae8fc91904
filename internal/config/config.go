package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Connections selects where connection records are looked up.
type Connections struct {
	Backend   string // "env" or "postgres"
	EnvPrefix string // prefix for env-backed connection URIs
	DB        DB     // postgres backend parameters
}

type DB struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

type Store struct {
	ConnID string // connection reference for the Redis store
	Key    string // sorted-set key holding scheduled alerts
}

type Drainer struct {
	Interval       time.Duration // how often a drain cycle fires
	DeliverTimeout time.Duration // per-request HTTP timeout
	HTTPPort       string        // health/metrics listen address
	PublishDLQ     bool          // whether failed deliveries go to the DLQ topic
	NsqdTCPAddr    string        // e.g. nsqd:4150
	DLQTopic       string        // dead letter topic name
}

type FakeChat struct {
	FailFirstN      int           // number of requests to fail initially
	ResponseDelayMS int           // simulated response delay in milliseconds
	Port            string        // server listen port
	ReadTimeout     time.Duration // HTTP read timeout
	WriteTimeout    time.Duration // HTTP write timeout
	IdleTimeout     time.Duration // HTTP idle timeout
}

type Config struct {
	AppName     string
	LogBaseURL  string // base for task-log deep links in cards
	ChatConnID  string // default chat webhook connection reference
	Connections Connections
	Store       Store
	Drainer     Drainer
	FakeChat    FakeChat
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func FromEnv() Config {
	return Config{
		AppName:    getenv("APP_NAME", "chimehook"),
		LogBaseURL: getenv("TASK_LOG_BASE_URL", "http://localhost:8080"),
		ChatConnID: getenv("CHAT_CONN_ID", "google_chat_webhook"),
		Connections: Connections{
			Backend:   getenv("CONN_BACKEND", "env"),
			EnvPrefix: getenv("CONN_ENV_PREFIX", "CONN_"),
			DB: DB{
				User: getenv("DB_USER", "postgres"),
				Pass: getenv("DB_PASS", "postgres"),
				Host: getenv("DB_HOST", "postgres"),
				Port: getenv("DB_PORT", "5432"),
				Name: getenv("DB_NAME", "chimehook"),
			},
		},
		Store: Store{
			ConnID: getenv("STORE_CONN_ID", "redis_default"),
			Key:    getenv("STORE_KEY", "scheduled_alerts"),
		},
		Drainer: Drainer{
			Interval:       getenvDuration("DRAIN_INTERVAL", 30*time.Second),
			DeliverTimeout: getenvDuration("DELIVER_TIMEOUT", 15*time.Second),
			HTTPPort:       ":" + getenv("DRAINER_HTTP_PORT", "8083"),
			PublishDLQ:     getenvBool("PUBLISH_DLQ_TOPIC", false),
			NsqdTCPAddr:    getenv("NSQD_TCP_ADDR", "nsqd:4150"),
			DLQTopic:       getenv("NSQ_DLQ_TOPIC", "alerts_dlq"),
		},
		FakeChat: FakeChat{
			FailFirstN:      getenvInt("FAIL_FIRST_N", 0),
			ResponseDelayMS: getenvInt("RESPONSE_DELAY_MS", 0),
			Port:            getenv("FAKE_CHAT_PORT", ":8081"),
			ReadTimeout:     getenvDuration("FAKE_CHAT_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getenvDuration("FAKE_CHAT_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getenvDuration("FAKE_CHAT_IDLE_TIMEOUT", 60*time.Second),
		},
	}
}

// DSN renders the postgres connection string for the connections
// backend.
func (c Config) DSN() string {
	db := c.Connections.DB
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		db.User, db.Pass, db.Host, db.Port, db.Name)
}
