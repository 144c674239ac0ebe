// internal/service/trigger.go
package service

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

var triggerParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// PeriodicTrigger calls fire on a cron schedule ("*/5 * * * *", "@every 5m").
// It can be stopped and started again.
type PeriodicTrigger struct {
	spec string
	fire func()

	mu      sync.Mutex
	c       *cron.Cron
	running bool
}

func NewPeriodicTrigger(spec string, fire func()) (*PeriodicTrigger, error) {
	if _, err := triggerParser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid dispatch schedule %q: %w", spec, err)
	}
	return &PeriodicTrigger{spec: spec, fire: fire}, nil
}

func (t *PeriodicTrigger) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		logger.Info("scheduler is already running")
		return nil
	}

	c := cron.New(cron.WithParser(triggerParser))
	if _, err := c.AddFunc(t.spec, t.fire); err != nil {
		return err
	}
	c.Start()
	t.c = c
	t.running = true
	logger.Info("⏰ dispatch scheduler started", zap.String("schedule", t.spec))
	return nil
}

// Stop halts the schedule and waits for a running fire call to return.
func (t *PeriodicTrigger) Stop() {
	t.mu.Lock()
	c := t.c
	wasRunning := t.running
	t.c = nil
	t.running = false
	t.mu.Unlock()

	if !wasRunning {
		logger.Info("scheduler is not running")
		return
	}
	<-c.Stop().Done()
	logger.Info("dispatch scheduler stopped")
}

func (t *PeriodicTrigger) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *PeriodicTrigger) Schedule() string {
	return t.spec
}
