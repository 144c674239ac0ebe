// internal/controller/mail_controller.go
package controller

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/internal/service"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

// SentLookup answers whether a message id went out, from a fast cache.
type SentLookup interface {
	SentAt(ctx context.Context, messageID string) (time.Time, bool, error)
}

type MailController struct {
	SendService *service.SendService
	LogRepo     repository.EmailLogRepositoryInterface
	// Optional; the log is scanned when unset or on a miss.
	SentCache SentLookup
}

// SendEmail sends right away. Attachments arrive base64 encoded.
func (c *MailController) SendEmail(w http.ResponseWriter, r *http.Request) {
	var body service.SendRequest
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := c.SendService.Send(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *MailController) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := c.LogRepo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// LookupMessage reports when ?message_id=<...> was sent. The Redis sent cache
// is asked first, then the log.
func (c *MailController) LookupMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("message_id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required field: message_id"})
		return
	}

	if c.SentCache != nil {
		at, ok, err := c.SentCache.SentAt(r.Context(), id)
		if err != nil {
			logger.Warn("sent cache lookup failed", zap.String("message_id", id), zap.Error(err))
		} else if ok {
			writeJSON(w, http.StatusOK, map[string]any{"message_id": id, "sentAt": at, "source": "cache"})
			return
		}
	}

	logs, err := c.LogRepo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	for _, entry := range logs {
		if entry.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"message_id": id, "sentAt": entry.SentAt, "source": "log"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "message " + id + " not found"})
}
