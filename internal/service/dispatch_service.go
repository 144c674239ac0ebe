// internal/service/dispatch_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

const (
	DefaultStaggerMin = time.Hour
	DefaultStaggerMax = 3 * time.Hour
)

type AccountLister interface {
	ListAll() ([]model.Account, error)
}

type ContactLister interface {
	ListAll() ([]model.Contact, error)
}

// PassLock serializes passes across processes. TryLock returns a nil release
// func when another holder has the lock.
type PassLock interface {
	TryLock(ctx context.Context) (func(), error)
}

type SentCache interface {
	StoreSentMessage(ctx context.Context, messageID string, sentAt time.Time) error
}

// PassResult summarizes one dispatch pass.
type PassResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

type batchDecision int

const (
	continueBatch batchDecision = iota
	haltBatch
)

// DispatchService runs dispatch passes over the scheduled email store.
type DispatchService struct {
	ScheduledRepo repository.ScheduledEmailRepositoryInterface
	AccountRepo   AccountLister
	ContactRepo   ContactLister
	LogRepo       repository.EmailLogRepositoryInterface
	Sender        mailer.Sender

	// Optional.
	Lock      PassLock
	SentCache SentCache

	Now   func() time.Time
	Delay func() time.Duration

	mu sync.Mutex
}

func NewDispatchService(
	scheduledRepo repository.ScheduledEmailRepositoryInterface,
	accountRepo AccountLister,
	contactRepo ContactLister,
	logRepo repository.EmailLogRepositoryInterface,
	sender mailer.Sender,
) *DispatchService {
	return &DispatchService{
		ScheduledRepo: scheduledRepo,
		AccountRepo:   accountRepo,
		ContactRepo:   contactRepo,
		LogRepo:       logRepo,
		Sender:        sender,
		Now:           time.Now,
		Delay:         UniformDelay(DefaultStaggerMin, DefaultStaggerMax),
	}
}

// UniformDelay returns a func drawing uniformly from [lo, hi].
func UniformDelay(lo, hi time.Duration) func() time.Duration {
	return func() time.Duration {
		if hi <= lo {
			return lo
		}
		return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
	}
}

func (s *DispatchService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *DispatchService) delay() time.Duration {
	if s.Delay == nil {
		return UniformDelay(DefaultStaggerMin, DefaultStaggerMax)()
	}
	return s.Delay()
}

// passState is what every record in a pass is dispatched against.
type passState struct {
	accounts map[string]model.Account
	contacts repository.ContactDirectory
	result   *PassResult
}

// RunPass sends at most one message: due records are tried oldest first until
// one is sent, failures are recorded and skipped. After a send the next due
// record is pushed back by a random stagger delay.
func (s *DispatchService) RunPass(ctx context.Context) (*PassResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Lock != nil {
		release, err := s.Lock.TryLock(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire pass lock: %w", err)
		}
		if release == nil {
			return nil, appErrors.ErrPassInProgress
		}
		defer release()
	}

	records, err := s.ScheduledRepo.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read scheduled emails: %w", err)
	}

	now := s.now()
	pending := countPending(records)
	due := SelectDue(records, now)
	result := &PassResult{}

	if len(due) == 0 {
		result.Remaining = pending
		return result, nil
	}

	accounts, err := s.AccountRepo.ListAll()
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	contacts, err := s.ContactRepo.ListAll()
	if err != nil {
		return nil, fmt.Errorf("read contacts: %w", err)
	}

	st := &passState{
		accounts: make(map[string]model.Account, len(accounts)),
		contacts: repository.NewContactDirectory(contacts),
		result:   result,
	}
	for _, a := range accounts {
		if _, ok := st.accounts[a.Username]; !ok {
			st.accounts[a.Username] = a
		}
	}

	for i := range due {
		rec := due[i]
		if rec.Throttled(now) {
			logger.Info("⏳ pass halted by throttle",
				zap.String("id", rec.ID),
				zap.Time("next_send_after", *rec.NextSendAfter))
			break
		}

		var next *model.ScheduledEmail
		if i+1 < len(due) {
			next = &due[i+1]
		}

		decision, err := s.processRecord(ctx, st, rec, next)
		if err != nil {
			result.Remaining = pending - result.Sent - result.Failed
			return result, err
		}
		if decision == haltBatch {
			break
		}
	}

	result.Remaining = pending - result.Sent - result.Failed
	logger.Info("📬 dispatch pass finished",
		zap.Int("due", len(due)),
		zap.Int("processed", result.Processed),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("remaining", result.Remaining))
	return result, nil
}

func (s *DispatchService) processRecord(ctx context.Context, st *passState, rec model.ScheduledEmail, next *model.ScheduledEmail) (batchDecision, error) {
	account, ok := st.accounts[rec.FromAccount]
	if !ok {
		logger.Warn("⚠️ sender account missing, marking failed",
			zap.String("id", rec.ID),
			zap.Error(appErrors.NewAccountNotFound(rec.FromAccount)))
		if err := s.markStatus(ctx, rec.ID, model.StatusFailed); err != nil {
			return haltBatch, err
		}
		st.result.Failed++
		st.result.Processed++
		return continueBatch, nil
	}

	var contact *model.Contact
	if c, found := st.contacts.Lookup(rec.To); found {
		contact = &c
	}
	html := Personalize(rec.HTML, contact)

	messageID, err := s.Sender.Send(ctx, account, mailer.Message{
		To:      rec.To,
		Subject: rec.Subject,
		HTML:    html,
	})
	if err != nil {
		// a cancelled pass says nothing about the record
		if ctxErr := ctx.Err(); ctxErr != nil {
			return haltBatch, ctxErr
		}
		logger.Warn("⚠️ send failed, marking failed",
			zap.String("id", rec.ID),
			zap.String("to", rec.To),
			zap.Error(err))
		if err := s.markStatus(ctx, rec.ID, model.StatusFailed); err != nil {
			return haltBatch, err
		}
		st.result.Failed++
		st.result.Processed++
		return continueBatch, nil
	}

	// The server accepted the message; recording it must not be cut short
	// by the caller going away, or the next pass would send it again.
	ctx = context.WithoutCancel(ctx)

	if err := s.markStatus(ctx, rec.ID, model.StatusSent); err != nil {
		return haltBatch, err
	}
	st.result.Sent++
	st.result.Processed++

	sentAt := s.now()
	entry := model.EmailLog{
		ID:      messageID,
		To:      rec.To,
		From:    account.Username,
		Subject: rec.Subject,
		Content: html,
		Status:  model.StatusSent,
		SentAt:  sentAt,
		Files:   []string{},
	}
	if err := s.LogRepo.Append(ctx, entry); err != nil {
		return haltBatch, fmt.Errorf("append email log: %w", err)
	}
	logger.Info("✅ scheduled email sent", zap.String("id", rec.ID), zap.String("message_id", messageID))

	if s.SentCache != nil {
		if err := s.SentCache.StoreSentMessage(ctx, messageID, sentAt); err != nil {
			logger.Warn("sent cache write failed", zap.String("message_id", messageID), zap.Error(err))
		}
	}

	if next != nil {
		delay := s.delay()
		notBefore := s.now().Add(delay)
		if err := s.setNextSendAfter(ctx, next.ID, notBefore); err != nil {
			return haltBatch, err
		}
		logger.Info("next scheduled email staggered",
			zap.String("id", next.ID),
			zap.Duration("delay", delay),
			zap.Time("next_send_after", notBefore))
	}
	return haltBatch, nil
}

// markStatus moves a pending record to status. Records that are gone or no
// longer pending are left alone.
func (s *DispatchService) markStatus(ctx context.Context, id, status string) error {
	err := s.ScheduledRepo.Update(ctx, func(records []model.ScheduledEmail) ([]model.ScheduledEmail, error) {
		for i := range records {
			if records[i].ID == id && records[i].IsPending() {
				records[i].Status = status
			}
		}
		return records, nil
	})
	if err != nil {
		return fmt.Errorf("mark %s %s: %w", id, status, err)
	}
	return nil
}

func (s *DispatchService) setNextSendAfter(ctx context.Context, id string, t time.Time) error {
	err := s.ScheduledRepo.Update(ctx, func(records []model.ScheduledEmail) ([]model.ScheduledEmail, error) {
		for i := range records {
			if records[i].ID == id && records[i].IsPending() {
				at := t
				records[i].NextSendAfter = &at
			}
		}
		return records, nil
	})
	if err != nil {
		return fmt.Errorf("stagger %s: %w", id, err)
	}
	return nil
}

// IsPassInProgress reports whether err means another pass holds the lock.
func IsPassInProgress(err error) bool {
	return errors.Is(err, appErrors.ErrPassInProgress)
}
