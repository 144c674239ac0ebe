// internal/service/scheduling_service.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

// ScheduleRequest is the body of a schedule call. To may hold several
// comma-separated addresses.
type ScheduleRequest struct {
	To            string `json:"to" validate:"required"`
	FromAccount   string `json:"from_account" validate:"required"`
	Subject       string `json:"subject" validate:"required"`
	HTML          string `json:"html" validate:"required"`
	ScheduledDate string `json:"scheduled_date" validate:"required"`
}

type ScheduleResult struct {
	Success bool     `json:"success"`
	IDs     []string `json:"ids"`
	Count   int      `json:"count"`
}

type ScheduledEmailStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Throttled int `json:"throttled"`
}

type SchedulingService struct {
	ScheduledRepo repository.ScheduledEmailRepositoryInterface
	Now           func() time.Time
}

func NewSchedulingService(repo repository.ScheduledEmailRepositoryInterface) *SchedulingService {
	return &SchedulingService{ScheduledRepo: repo, Now: time.Now}
}

func (s *SchedulingService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// accepted scheduled_date layouts; the short ones are read in local time
var scheduleLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func parseScheduledDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	var lastErr error
	for _, layout := range scheduleLayouts {
		t, err := time.ParseInLocation(layout, v, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// SplitRecipients splits on commas, trims and drops empty entries.
func SplitRecipients(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Create stores one pending record per recipient.
func (s *SchedulingService) Create(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	scheduledAt, err := parseScheduledDate(req.ScheduledDate)
	if err != nil {
		return nil, appErrors.NewValidationError("scheduled_date", "unrecognized date format")
	}
	recipients := SplitRecipients(req.To)
	if len(recipients) == 0 {
		return nil, appErrors.NewValidationError("to", "no recipients")
	}

	createdAt := s.now().UTC()
	created := make([]model.ScheduledEmail, 0, len(recipients))
	ids := make([]string, 0, len(recipients))
	for _, to := range recipients {
		id := uuid.NewString()
		ids = append(ids, id)
		created = append(created, model.ScheduledEmail{
			ID:            id,
			To:            to,
			FromAccount:   req.FromAccount,
			Subject:       req.Subject,
			HTML:          req.HTML,
			ScheduledDate: scheduledAt.UTC(),
			Status:        model.StatusPending,
			CreatedAt:     createdAt,
		})
	}

	err = s.ScheduledRepo.Update(ctx, func(records []model.ScheduledEmail) ([]model.ScheduledEmail, error) {
		return append(records, created...), nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("🗓️ scheduled emails created",
		zap.Int("count", len(ids)),
		zap.Time("scheduled_date", scheduledAt))
	return &ScheduleResult{Success: true, IDs: ids, Count: len(ids)}, nil
}

func (s *SchedulingService) List(ctx context.Context) ([]model.ScheduledEmail, error) {
	return s.ScheduledRepo.ReadAll(ctx)
}

// ListPage filters by status (empty means any) and paginates in store order.
func (s *SchedulingService) ListPage(ctx context.Context, page, pageSize int, status string) ([]model.ScheduledEmail, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	records, err := s.ScheduledRepo.ReadAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	filtered := make([]model.ScheduledEmail, 0, len(records))
	for _, r := range records {
		if status != "" && r.Status != status {
			continue
		}
		filtered = append(filtered, r)
	}

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
	return filtered[start:end], pagination, nil
}

// Delete removes a pending record. Sent and failed records are history and stay.
func (s *SchedulingService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return appErrors.NewValidationError("id", "")
	}
	return s.ScheduledRepo.Update(ctx, func(records []model.ScheduledEmail) ([]model.ScheduledEmail, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			if !records[i].IsPending() {
				return nil, appErrors.ErrScheduledEmailNotDeletable
			}
			return append(records[:i], records[i+1:]...), nil
		}
		return nil, appErrors.NewScheduledEmailNotFound(id)
	})
}

func (s *SchedulingService) Stats(ctx context.Context) (*ScheduledEmailStats, error) {
	records, err := s.ScheduledRepo.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	stats := &ScheduledEmailStats{Total: len(records)}
	for i := range records {
		switch records[i].Status {
		case model.StatusPending:
			stats.Pending++
			if records[i].Throttled(now) {
				stats.Throttled++
			}
		case model.StatusSent:
			stats.Sent++
		case model.StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (s *SchedulingService) Get(ctx context.Context, id string) (*model.ScheduledEmail, error) {
	records, err := s.ScheduledRepo.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, appErrors.NewScheduledEmailNotFound(id)
}
