// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/internal/app"
	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/controller"
	"github.com/unclebandit/coldmail-backend/internal/handler"
	"github.com/unclebandit/coldmail-backend/internal/service"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

func main() {
	// Load .env
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

	// With a broker configured the worker process consumes passes; otherwise
	// this process runs them itself.
	if cfg.AMQPURL == "" {
		worker := service.NewWorker(a.Dispatch, 1)
		if err := a.StartWorker(ctx, worker); err != nil {
			logger.Error("❌ failed to start worker", zap.Error(err))
			os.Exit(1)
		}
	}

	trigger, err := a.NewTrigger("cron")
	if err != nil {
		logger.Error("❌ invalid dispatch schedule", zap.Error(err))
		os.Exit(1)
	}
	if err := trigger.Start(); err != nil {
		logger.Error("❌ failed to start scheduler", zap.Error(err))
		os.Exit(1)
	}
	defer trigger.Stop()
	if cfg.DispatchOnStart {
		a.RequestPass("startup")
	}

	r := newRouter(a, trigger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 Server running", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ server failed", zap.Error(err))
			stop()
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-a.AMQPClosed():
		logger.Error("❌ broker connection lost", zap.Error(err))
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newRouter(a *app.App, trigger controller.SchedulerControl) chi.Router {
	schedulingService := service.NewSchedulingService(a.ScheduledRepo)

	scheduledEmailController := &controller.ScheduledEmailController{SchedulingService: schedulingService}
	statsHandler := handler.NewStatsHandler(schedulingService)
	dispatchController := &controller.DispatchController{
		Runner:    a.Dispatch,
		Queue:     a.Queue,
		Scheduler: trigger,
	}
	accountController := &controller.AccountController{
		AccountService: &service.AccountService{AccountRepo: a.AccountRepo, Verifier: a.Sender},
	}
	directoryController := &controller.DirectoryController{
		DirectoryService: &service.DirectoryService{ContactRepo: a.ContactRepo, LinkRepo: a.LinkRepo},
	}
	mailController := &controller.MailController{
		SendService: &service.SendService{
			AccountRepo: a.AccountRepo,
			LogRepo:     a.LogRepo,
			Sender:      a.Sender,
			Fallback:    a.FallbackAccount(),
		},
		LogRepo: a.LogRepo,
	}
	if a.SentCache != nil {
		mailController.SentCache = a.SentCache
	}

	r := chi.NewRouter()

	// Scheduled email routes
	r.Post("/schedule-email", scheduledEmailController.CreateScheduledEmail)
	r.Post("/scheduled-emails", scheduledEmailController.CreateScheduledEmail)
	r.Get("/scheduled-emails", scheduledEmailController.ListScheduledEmails)
	r.Get("/scheduled-emails/search", scheduledEmailController.SearchScheduledEmails)
	r.Get("/scheduled-emails/stats", statsHandler.GetStatsHandler)
	r.Get("/scheduled-emails/{id}", statsHandler.GetScheduledEmailHandler)
	r.Delete("/scheduled-emails", scheduledEmailController.DeleteScheduledEmail)
	r.Delete("/scheduled-emails/{id}", scheduledEmailController.DeleteScheduledEmail)

	// Dispatch routes
	r.Group(func(r chi.Router) {
		r.Use(controller.RateLimit(a.Config.TriggerRatePerMin))
		r.Post("/process-scheduled", dispatchController.ProcessScheduled)
		r.Post("/process-scheduled/async", dispatchController.ProcessScheduledAsync)
	})
	r.Post("/scheduler/start", dispatchController.StartScheduler)
	r.Post("/scheduler/stop", dispatchController.StopScheduler)
	r.Get("/scheduler/status", dispatchController.SchedulerStatus)

	// Account routes
	r.Get("/accounts", accountController.ListAccounts)
	r.Post("/accounts", accountController.CreateAccount)
	r.Delete("/accounts", accountController.DeleteAccount)
	r.Post("/accounts/test", accountController.TestAccount)
	r.Post("/accounts/test-existing", accountController.TestExistingAccount)

	// Contacts (brands) and links
	r.Get("/contacts", directoryController.ListContacts)
	r.Post("/contacts", directoryController.EditContacts)
	r.Get("/brands", directoryController.ListContacts)
	r.Post("/brands", directoryController.EditContacts)
	r.Get("/links", directoryController.ListLinks)
	r.Post("/links", directoryController.EditLinks)

	// Immediate sends
	r.Post("/send-email", mailController.SendEmail)
	r.Get("/logs", mailController.ListLogs)
	r.Get("/logs/lookup", mailController.LookupMessage)

	return r
}
