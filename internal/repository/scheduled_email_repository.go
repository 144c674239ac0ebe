// internal/repository/scheduled_email_repository.go
package repository

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
)

const ScheduledEmailsFile = "scheduled_emails.csv"

// UpdateFunc receives the current snapshot and returns the snapshot to persist.
// Returning an error aborts the write.
type UpdateFunc func(records []model.ScheduledEmail) ([]model.ScheduledEmail, error)

type ScheduledEmailRepositoryInterface interface {
	ReadAll(ctx context.Context) ([]model.ScheduledEmail, error)
	WriteAll(ctx context.Context, records []model.ScheduledEmail) error
	// Update is an atomic read-modify-write of the whole collection.
	Update(ctx context.Context, fn UpdateFunc) error
}

// CSVScheduledEmailRepository keeps scheduled emails in a single CSV file.
// All access in this process is serialized by mu.
type CSVScheduledEmailRepository struct {
	Path string
	mu   sync.Mutex
}

func NewCSVScheduledEmailRepository(dataDir string) *CSVScheduledEmailRepository {
	return &CSVScheduledEmailRepository{Path: filepath.Join(dataDir, ScheduledEmailsFile)}
}

type scheduledEmailRow struct {
	ID            string `csv:"id"`
	To            string `csv:"to"`
	FromAccount   string `csv:"from_account"`
	Subject       string `csv:"subject"`
	HTML          string `csv:"html"`
	ScheduledDate string `csv:"scheduled_date"`
	Status        string `csv:"status"`
	CreatedAt     string `csv:"created_at"`
	NextSendAfter string `csv:"next_send_after"`
}

func (r *CSVScheduledEmailRepository) ReadAll(ctx context.Context) ([]model.ScheduledEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readLocked()
}

func (r *CSVScheduledEmailRepository) WriteAll(ctx context.Context, records []model.ScheduledEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLocked(records)
}

func (r *CSVScheduledEmailRepository) Update(ctx context.Context, fn UpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	records, err := r.readLocked()
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	return r.writeLocked(next)
}

func (r *CSVScheduledEmailRepository) readLocked() ([]model.ScheduledEmail, error) {
	rows := []scheduledEmailRow{}
	if err := readCSVFile(r.Path, &rows); err != nil {
		return nil, err
	}

	records := make([]model.ScheduledEmail, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toModel()
		if err != nil {
			return nil, appErrors.CorruptStore(r.Path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *CSVScheduledEmailRepository) writeLocked(records []model.ScheduledEmail) error {
	rows := make([]scheduledEmailRow, len(records))
	for i, rec := range records {
		rows[i] = scheduledEmailRowFrom(rec)
	}
	return writeCSVFile(r.Path, scheduledEmailRow{}, rows)
}

func (row scheduledEmailRow) toModel() (model.ScheduledEmail, error) {
	rec := model.ScheduledEmail{
		ID:          row.ID,
		To:          row.To,
		FromAccount: row.FromAccount,
		Subject:     row.Subject,
		HTML:        row.HTML,
		Status:      row.Status,
	}

	var err error
	if rec.ScheduledDate, err = time.Parse(time.RFC3339Nano, row.ScheduledDate); err != nil {
		return rec, err
	}
	if row.CreatedAt != "" {
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, row.CreatedAt); err != nil {
			return rec, err
		}
	}
	if row.NextSendAfter != "" {
		t, err := time.Parse(time.RFC3339Nano, row.NextSendAfter)
		if err != nil {
			return rec, err
		}
		rec.NextSendAfter = &t
	}
	return rec, nil
}

func scheduledEmailRowFrom(rec model.ScheduledEmail) scheduledEmailRow {
	row := scheduledEmailRow{
		ID:            rec.ID,
		To:            rec.To,
		FromAccount:   rec.FromAccount,
		Subject:       rec.Subject,
		HTML:          rec.HTML,
		ScheduledDate: rec.ScheduledDate.UTC().Format(time.RFC3339Nano),
		Status:        rec.Status,
	}
	if !rec.CreatedAt.IsZero() {
		row.CreatedAt = rec.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if rec.NextSendAfter != nil {
		row.NextSendAfter = rec.NextSendAfter.UTC().Format(time.RFC3339Nano)
	}
	return row
}

var _ ScheduledEmailRepositoryInterface = (*CSVScheduledEmailRepository)(nil)
