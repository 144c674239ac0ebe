// internal/controller/dispatch_controller.go
package controller

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/internal/queue"
	"github.com/unclebandit/coldmail-backend/internal/service"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

// SchedulerControl starts and stops the periodic trigger.
type SchedulerControl interface {
	Start() error
	Stop()
	IsRunning() bool
	Schedule() string
}

type DispatchController struct {
	Runner    service.PassRunner
	Queue     queue.Queue
	Scheduler SchedulerControl
}

// ProcessScheduled runs one pass inline and returns its counters.
func (c *DispatchController) ProcessScheduled(w http.ResponseWriter, r *http.Request) {
	result, err := c.Runner.RunPass(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ProcessScheduledAsync hands the pass to the worker through the queue.
func (c *DispatchController) ProcessScheduledAsync(w http.ResponseWriter, r *http.Request) {
	req := queue.PassRequest{Source: "api", RequestedAt: time.Now().UTC()}
	if err := c.Queue.Publish(queue.DispatchTopic, req); err != nil {
		logger.Error("⚠️ failed to enqueue dispatch pass", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "failed to enqueue dispatch pass"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true, "requested_at": req.RequestedAt})
}

func (c *DispatchController) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := c.Scheduler.Start(); err != nil {
		writeError(w, err)
		return
	}
	c.SchedulerStatus(w, r)
}

func (c *DispatchController) StopScheduler(w http.ResponseWriter, r *http.Request) {
	c.Scheduler.Stop()
	c.SchedulerStatus(w, r)
}

func (c *DispatchController) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running":  c.Scheduler.IsRunning(),
		"schedule": c.Scheduler.Schedule(),
	})
}
