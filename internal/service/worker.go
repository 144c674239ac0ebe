package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/internal/queue"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

// PassRunner defines the method the worker needs
type PassRunner interface {
	RunPass(ctx context.Context) (*PassResult, error)
}

// Worker runs dispatch passes one at a time, in the order they were requested.
// It is the only caller of RunPass in a worker process.
type Worker struct {
	Runner  PassRunner
	JobChan chan queue.PassRequest
	// OnResult is called after every pass when set.
	OnResult func(req queue.PassRequest, res *PassResult, err error)
}

// Constructor. buffer bounds how many requests can wait; extra ones are dropped
// since a queued pass will pick up their work anyway.
func NewWorker(runner PassRunner, buffer int) *Worker {
	if buffer < 1 {
		buffer = 1
	}
	return &Worker{
		Runner:  runner,
		JobChan: make(chan queue.PassRequest, buffer),
	}
}

// Submit queues a pass request without blocking. It reports false when the
// request was coalesced into one already waiting.
func (w *Worker) Submit(req queue.PassRequest) bool {
	select {
	case w.JobChan <- req:
		return true
	default:
		logger.Debug("pass already queued, coalescing", zap.String("source", req.Source))
		return false
	}
}

// Start begins processing jobs until ctx is done or JobChan is closed.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-w.JobChan:
			if !ok {
				return
			}
			res, err := w.Runner.RunPass(ctx)
			switch {
			case IsPassInProgress(err):
				logger.Info("pass skipped, another process holds the lock", zap.String("source", req.Source))
			case err != nil:
				logger.Error("❌ dispatch pass failed", zap.String("source", req.Source), zap.Error(err))
			}
			if w.OnResult != nil {
				w.OnResult(req, res, err)
			}
		}
	}
}
