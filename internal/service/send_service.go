// internal/service/send_service.go
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

type AttachmentPayload struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"` // base64
	ContentType string `json:"contentType"`
}

type FromAccountRef struct {
	Username string `json:"smtp_username"`
}

type SendRequest struct {
	To          string              `json:"to" validate:"required"`
	Subject     string              `json:"subject" validate:"required"`
	HTML        string              `json:"html" validate:"required_without=Text"`
	Text        string              `json:"text" validate:"required_without=HTML"`
	FromAccount *FromAccountRef     `json:"fromAccount"`
	Attachments []AttachmentPayload `json:"attachments"`
}

type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

// SendService sends a message right away, outside the scheduler.
type SendService struct {
	AccountRepo repository.AccountRepositoryInterface
	LogRepo     repository.EmailLogRepositoryInterface
	Sender      mailer.Sender
	// Fallback is used when the request names no known account.
	Fallback model.Account
	Now      func() time.Time
}

func (s *SendService) resolveAccount(ref *FromAccountRef) (model.Account, error) {
	if ref != nil && ref.Username != "" {
		acc, err := s.AccountRepo.GetByUsername(ref.Username)
		if err == nil {
			return *acc, nil
		}
		var notFound *appErrors.AccountNotFoundError
		if !errors.As(err, &notFound) {
			return model.Account{}, err
		}
	}
	return s.Fallback, nil
}

func (s *SendService) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	account, err := s.resolveAccount(req.FromAccount)
	if err != nil {
		return nil, err
	}

	msg := mailer.Message{To: req.To, Subject: req.Subject, HTML: req.HTML, Text: req.Text}
	files := make([]string, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		content, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, appErrors.NewValidationError("attachments", "content of "+a.Filename+" is not base64")
		}
		msg.Attachments = append(msg.Attachments, mailer.Attachment{
			Filename:    a.Filename,
			Content:     content,
			ContentType: a.ContentType,
		})
		files = append(files, a.Filename)
	}

	messageID, err := s.Sender.Send(ctx, account, msg)
	if err != nil {
		logger.Error("❌ immediate send failed", zap.String("to", req.To), zap.Error(err))
		return nil, err
	}

	content := req.Text
	if content == "" {
		content = req.HTML
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	entry := model.EmailLog{
		ID:      messageID,
		To:      req.To,
		From:    account.Username,
		Subject: req.Subject,
		Content: content,
		Status:  model.StatusSent,
		SentAt:  now(),
		Files:   files,
	}
	if err := s.LogRepo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return &SendResult{Success: true, MessageID: messageID}, nil
}
