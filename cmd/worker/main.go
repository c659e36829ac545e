package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"rankpilot/internal/agents"
	"rankpilot/internal/config"
	"rankpilot/internal/queue"
	"rankpilot/internal/store"
	"rankpilot/internal/telemetry"
	"rankpilot/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	st, err := store.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.RunMigrations(ctx); err != nil {
		logger.Error("migrations", "error", err)
		os.Exit(1)
	}

	q := queue.NewRedisQueue(cfg)

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		if hostname, _ := os.Hostname(); hostname != "" {
			workerID = hostname
		} else {
			workerID = fmt.Sprintf("worker-%d", os.Getpid())
		}
	}

	archiver, err := worker.NewS3Archiver(ctx, cfg)
	if err != nil {
		logger.Error("init report archiver", "error", err)
		os.Exit(1)
	}
	if archiver == nil {
		logger.Warn("no report bucket configured, raw audit reports will not be archived")
	}

	registry := agents.NewRegistry()
	processor := worker.NewProcessor(cfg, q, st,
		worker.NewAgentRunner(st, registry),
		worker.NewAuditRunner(cfg, st, archiver),
		workerID,
	)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	logger.Info("executor started",
		"worker_id", workerID,
		"visibility", cfg.VisibilityTimeout.String(),
		"backoff_initial", cfg.BackoffInitial.String(),
	)
	if err := processor.Run(ctx); err != nil {
		logger.Info("executor stopped", "reason", err.Error())
	}
}
