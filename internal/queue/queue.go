package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

// DispatchTopic carries requests to run one dispatch pass.
const DispatchTopic = "dispatch_passes"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// PassRequest asks a worker to run a dispatch pass.
type PassRequest struct {
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
}

// InMemoryQueue delivers in-process with retry
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	backoff  time.Duration
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
		backoff:  500 * time.Millisecond,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(topic, handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			logger.Debug("job processed", zap.String("topic", topic))
			return // ACK
		}

		job.RetryCount++
		logger.Warn("job failed",
			zap.String("topic", topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))

		if job.RetryCount > job.MaxRetries {
			logger.Error("job permanently failed", zap.String("topic", topic), zap.Int("attempts", job.RetryCount))
			return // No requeue
		}

		// linear backoff before retry
		time.Sleep(time.Duration(job.RetryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartDispatchSubscriber forwards pass requests from q to handle. Payloads may
// arrive as a PassRequest (in-memory) or as its JSON encoding (AMQP).
func StartDispatchSubscriber(q Queue, handle func(PassRequest) error) error {
	err := q.Subscribe(DispatchTopic, func(payload any) error {
		var req PassRequest
		switch p := payload.(type) {
		case PassRequest:
			req = p
		case *PassRequest:
			req = *p
		case []byte:
			if err := json.Unmarshal(p, &req); err != nil {
				logger.Warn("⚠️ invalid dispatch payload, dropping", zap.Error(err))
				return nil // no retry
			}
		default:
			logger.Warn("⚠️ invalid dispatch payload type", zap.String("type", fmt.Sprintf("%T", payload)))
			return nil
		}

		logger.Info("📩 dispatch pass requested", zap.String("source", req.Source))
		return handle(req)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", DispatchTopic, err)
	}
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
