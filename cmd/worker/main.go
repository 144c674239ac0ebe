package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/internal/app"
	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/queue"
	"github.com/unclebandit/coldmail-backend/internal/service"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("❌ startup failed", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	trigger, err := startWorker(ctx, a, nil)
	if err != nil {
		logger.Error("❌ failed to start worker", zap.Error(err))
		os.Exit(1)
	}
	if trigger != nil {
		defer trigger.Stop()
	}

	logger.Info("Worker running, waiting for dispatch passes...")
	select {
	case <-ctx.Done():
	case err := <-a.AMQPClosed():
		logger.Error("❌ broker connection lost", zap.Error(err))
	}
	logger.Info("worker stopped")
}

// startWorker consumes pass requests from the app queue. Without a broker the
// worker is standalone and drives its own schedule, which it returns.
func startWorker(ctx context.Context, a *app.App, onResult func(queue.PassRequest, *service.PassResult, error)) (*service.PeriodicTrigger, error) {
	worker := service.NewWorker(a.Dispatch, 1)
	worker.OnResult = func(req queue.PassRequest, res *service.PassResult, err error) {
		if err == nil && res != nil {
			logger.Info("✅ dispatch pass done",
				zap.String("source", req.Source),
				zap.Int("processed", res.Processed),
				zap.Int("sent", res.Sent),
				zap.Int("failed", res.Failed),
				zap.Int("remaining", res.Remaining))
		}
		if onResult != nil {
			onResult(req, res, err)
		}
	}
	if err := a.StartWorker(ctx, worker); err != nil {
		return nil, err
	}

	if a.Config.AMQPURL != "" {
		return nil, nil
	}

	trigger, err := a.NewTrigger("worker-cron")
	if err != nil {
		return nil, err
	}
	if err := trigger.Start(); err != nil {
		return nil, err
	}
	if a.Config.DispatchOnStart {
		a.RequestPass("worker-startup")
	}
	return trigger, nil
}
