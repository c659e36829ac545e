package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"rankpilot/internal/agents"
	"rankpilot/internal/api"
	"rankpilot/internal/auth"
	"rankpilot/internal/config"
	"rankpilot/internal/dispatch"
	"rankpilot/internal/insights"
	"rankpilot/internal/marketing"
	"rankpilot/internal/queue"
	"rankpilot/internal/ratelimit"
	"rankpilot/internal/store"
	"rankpilot/internal/workflow"
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

	authMgr, err := auth.NewManager(cfg.AuthSecret, cfg.AuthTokenTTL)
	if err != nil {
		logger.Error("auth manager", "error", err)
		os.Exit(1)
	}

	marketingClient, err := marketing.NewClient(marketing.Config{
		BaseURL: cfg.MarketingBaseURL,
		APIKey:  cfg.MarketingAPIKey,
		Timeout: cfg.MarketingTimeout,
	})
	if err != nil {
		logger.Error("marketing client", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	q := queue.NewRedisQueueWithClient(redisClient, cfg)
	limiter := ratelimit.NewSubmissionLimiter(redisClient, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)

	server := api.New(api.Deps{
		Config:    cfg,
		Logger:    logger,
		Auth:      authMgr,
		Dispatch:  dispatch.NewService(st, q, agents.NewRegistry()),
		Approvals: workflow.NewApprovals(st),
		Insights:  insights.NewService(st, marketingClient),
		DLQ:       q,
		Limiter:   limiter,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	logger.Info("api listening", "port", cfg.HTTPPort, "env", cfg.Env)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}
