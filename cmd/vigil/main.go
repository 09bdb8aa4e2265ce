package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"vigil/internal/bot"
	"vigil/internal/config"
	"vigil/internal/store"
	"vigil/internal/tasks"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	st, err := store.New(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	cancel()
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}

	sched := tasks.NewScheduler(st.Jobs, time.Duration(cfg.Scheduler.GraceMinutes)*time.Minute, logger)

	botSvc, err := bot.New(cfg, logger, st, sched)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	sched.Start(time.Duration(cfg.Scheduler.PollSeconds) * time.Second)
	logger.Info("bot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop()
	botSvc.Close(shutdownCtx)
	st.Close(shutdownCtx)
}
