package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/chimehook/chimehook/internal/config"
	"github.com/chimehook/chimehook/internal/connections"
	"github.com/chimehook/chimehook/internal/deliver"
	"github.com/chimehook/chimehook/internal/drain"
	"github.com/chimehook/chimehook/internal/health"
	"github.com/chimehook/chimehook/internal/logging"
	"github.com/chimehook/chimehook/internal/metrics"
	"github.com/chimehook/chimehook/internal/store"
	"github.com/chimehook/chimehook/internal/tracing"
)

func main() {
	cfg := config.FromEnv()
	ctx := context.Background()

	// Initialize structured logging
	logger := logging.New(cfg.AppName + "-drainer")

	// Initialize OpenTelemetry tracing
	shutdown, err := tracing.InitTracing(ctx, cfg.AppName+"-drainer")
	if err != nil {
		logger.Plain().WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdown()

	// Connection records: env-backed by default, postgres when shared
	// across deployments
	conns, closeConns, err := buildConnections(ctx, cfg)
	if err != nil {
		logger.Plain().WithError(err).Fatal("connection store init failed")
	}
	defer closeConns()

	// Durable store for deferred alerts
	storeConn, err := conns.Get(ctx, cfg.Store.ConnID)
	if err != nil {
		logger.Plain().WithError(err).WithField("conn_id", cfg.Store.ConnID).Fatal("store connection lookup failed")
	}
	client := store.NewClient(storeConn)
	defer client.Close()
	st := store.New(client, cfg.Store.Key)
	if err := st.Ping(ctx); err != nil {
		logger.Plain().WithError(err).Fatal("store ping failed")
	}

	// Prom metrics
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	// HTTP health/metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.HTTPHandler(st))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{Addr: cfg.Drainer.HTTPPort, Handler: mux}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("drainer HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("drainer HTTP server failed")
		}
	}()

	// DLQ producer
	var dlq drain.DeadLetters
	if cfg.Drainer.PublishDLQ {
		pub, err := deliver.NewDeadLetterPublisher(cfg.Drainer.NsqdTCPAddr, cfg.Drainer.DLQTopic)
		if err != nil {
			logger.Plain().WithError(err).Fatal("nsq producer for DLQ creation failed")
		}
		defer pub.Stop()
		dlq = pub
	}

	drainer := drain.New(st, conns, deliver.NewClient(cfg.Drainer.DeliverTimeout, logger), dlq, logger)

	// Start backlog monitoring
	startBacklogMonitor(st, logger)

	// Recurring drain cycles
	c := cron.New()
	_, err = c.AddFunc(fmt.Sprintf("@every %s", cfg.Drainer.Interval), func() {
		now := time.Now()
		outcomes, err := drainer.DrainDue(ctx, now)
		if err != nil {
			logger.Plain().WithError(err).Error("drain cycle had per-alert failures")
		}
		if len(outcomes) > 0 {
			logger.Plain().WithField("delivered", len(outcomes)).Info("drain cycle complete")
		}
	})
	if err != nil {
		logger.Plain().WithError(err).Fatal("drain schedule registration failed")
	}
	c.Start()

	logger.Plain().WithField("interval", cfg.Drainer.Interval.String()).Info("drainer service started")

	// Graceful stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Plain().Info("Shutting down drainer service")
	cronCtx := c.Stop()
	<-cronCtx.Done() // let an in-flight cycle finish its claims
	_ = httpSrv.Shutdown(context.Background())
	logger.Plain().Info("drainer service stopped")
}

// buildConnections selects the connection-record backend from config.
func buildConnections(ctx context.Context, cfg config.Config) (connections.Store, func(), error) {
	switch cfg.Connections.Backend {
	case "postgres":
		pg, err := connections.NewPostgresStore(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case "env", "":
		return connections.EnvStore{Prefix: cfg.Connections.EnvPrefix}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown connections backend %q", cfg.Connections.Backend)
	}
}

// startBacklogMonitor starts a goroutine to periodically update the
// scheduled-backlog gauge.
func startBacklogMonitor(st *store.Redis, logger *logging.Logger) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := st.Backlog(ctx)
			cancel()
			if err != nil {
				logger.Plain().WithError(err).Error("Failed to read store backlog")
				continue
			}
			metrics.ScheduledBacklog.Set(float64(n))
		}
	}()
}
