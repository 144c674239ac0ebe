// internal/app/app.go
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/internal/cache"
	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/db"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/queue"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/internal/service"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

// App holds everything the server and worker processes share.
type App struct {
	Config *config.Config

	ScheduledRepo repository.ScheduledEmailRepositoryInterface
	LogRepo       repository.EmailLogRepositoryInterface
	AccountRepo   *repository.AccountRepository
	ContactRepo   *repository.ContactRepository
	LinkRepo      *repository.LinkRepository

	Sender   *mailer.SMTPSender
	Dispatch *service.DispatchService
	Queue    queue.Queue
	// nil without Redis
	SentCache *cache.RedisSentCache

	db    *sql.DB
	redis *redis.Client
	amqp  *queue.AMQPQueue
}

// New opens the stores, the optional Redis and AMQP connections and builds the
// dispatch service. Accounts, contacts and links always live in DataDir.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:      cfg,
		AccountRepo: repository.NewAccountRepository(cfg.DataDir),
		ContactRepo: repository.NewContactRepository(cfg.DataDir),
		LinkRepo:    repository.NewLinkRepository(cfg.DataDir),
		Sender:      mailer.NewSMTPSender(cfg.SendTimeout, cfg.SMTPVerifyTimeout),
	}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		conn, err := db.Open(ctx, db.Settings{
			URL:      cfg.Database.URL,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Name:     cfg.Database.Name,
		})
		if err != nil {
			return nil, err
		}
		a.db = conn
		a.ScheduledRepo = &repository.PostgresScheduledEmailRepository{DB: conn}
		a.LogRepo = &repository.PostgresEmailLogRepository{DB: conn}
	default:
		a.ScheduledRepo = repository.NewCSVScheduledEmailRepository(cfg.DataDir)
		a.LogRepo = repository.NewCSVEmailLogRepository(cfg.DataDir)
	}

	a.Dispatch = service.NewDispatchService(a.ScheduledRepo, a.AccountRepo, a.ContactRepo, a.LogRepo, a.Sender)
	a.Dispatch.Delay = service.UniformDelay(cfg.StaggerMin, cfg.StaggerMax)

	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		a.Dispatch.Lock = cache.NewRedisPassLock(client, cfg.PassLockTTL)
		a.SentCache = cache.NewRedisSentCache(client)
		a.Dispatch.SentCache = a.SentCache
	}

	if cfg.AMQPURL != "" {
		q, err := queue.DialAMQP(cfg.AMQPURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.amqp = q
		a.Queue = q
	} else {
		a.Queue = queue.NewInMemoryQueue()
	}

	logger.Info("app wired",
		zap.String("store", cfg.StoreDriver),
		zap.Bool("redis", a.redis != nil),
		zap.Bool("amqp", a.amqp != nil))
	return a, nil
}

// FallbackAccount is the SMTP_* account used when a send names no stored one.
func (a *App) FallbackAccount() model.Account {
	return model.Account{
		Server:   a.Config.SMTP.Server,
		Port:     a.Config.SMTP.Port,
		Username: a.Config.SMTP.Username,
		Password: a.Config.SMTP.Password,
	}
}

// StartWorker runs w in the background and feeds it every pass request
// published on the dispatch topic.
func (a *App) StartWorker(ctx context.Context, w *service.Worker) error {
	go w.Start(ctx)
	return queue.StartDispatchSubscriber(a.Queue, func(req queue.PassRequest) error {
		w.Submit(req)
		return nil
	})
}

// NewTrigger publishes a pass request on every tick of the dispatch schedule.
func (a *App) NewTrigger(source string) (*service.PeriodicTrigger, error) {
	return service.NewPeriodicTrigger(a.Config.DispatchSchedule, func() {
		a.RequestPass(source)
	})
}

func (a *App) RequestPass(source string) {
	req := queue.PassRequest{Source: source, RequestedAt: a.Dispatch.Now().UTC()}
	if err := a.Queue.Publish(queue.DispatchTopic, req); err != nil {
		logger.Error("⚠️ failed to publish dispatch pass", zap.String("source", source), zap.Error(err))
	}
}

// AMQPClosed reports broker disconnects; nil when no broker is configured.
func (a *App) AMQPClosed() <-chan error {
	if a.amqp == nil {
		return nil
	}
	out := make(chan error, 1)
	go func() {
		if err, ok := <-a.amqp.NotifyClose(); ok && err != nil {
			out <- fmt.Errorf("amqp connection closed: %w", err)
		}
		close(out)
	}()
	return out
}

func (a *App) Close() {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			logger.Warn("failed to close amqp connection", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
