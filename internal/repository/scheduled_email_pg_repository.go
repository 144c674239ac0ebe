// internal/repository/scheduled_email_pg_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unclebandit/coldmail-backend/internal/model"
)

// PostgresScheduledEmailRepository stores the collection in the scheduled_emails
// table. position keeps insertion order so ties on scheduled_date resolve the
// same way as the CSV store.
type PostgresScheduledEmailRepository struct {
	DB *sql.DB
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *PostgresScheduledEmailRepository) ReadAll(ctx context.Context) ([]model.ScheduledEmail, error) {
	return readScheduledEmails(ctx, r.DB)
}

func (r *PostgresScheduledEmailRepository) WriteAll(ctx context.Context, records []model.ScheduledEmail) error {
	return r.Update(ctx, func([]model.ScheduledEmail) ([]model.ScheduledEmail, error) {
		return records, nil
	})
}

func (r *PostgresScheduledEmailRepository) Update(ctx context.Context, fn UpdateFunc) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE scheduled_emails IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock scheduled_emails: %w", err)
	}

	current, err := readScheduledEmails(ctx, tx)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_emails`); err != nil {
		return err
	}

	query := `
        INSERT INTO scheduled_emails
        (position, id, to_address, from_account, subject, html, scheduled_date, status, created_at, next_send_after)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range next {
		var nextSend sql.NullTime
		if rec.NextSendAfter != nil {
			nextSend = sql.NullTime{Time: *rec.NextSendAfter, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, rec.ID, rec.To, rec.FromAccount, rec.Subject, rec.HTML,
			rec.ScheduledDate, rec.Status, rec.CreatedAt, nextSend); err != nil {
			return fmt.Errorf("insert scheduled email %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

func readScheduledEmails(ctx context.Context, q queryer) ([]model.ScheduledEmail, error) {
	query := `
        SELECT id, to_address, from_account, subject, html, scheduled_date, status, created_at, next_send_after
        FROM scheduled_emails
        ORDER BY position
    `
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.ScheduledEmail{}
	for rows.Next() {
		var rec model.ScheduledEmail
		var nextSend sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.To, &rec.FromAccount, &rec.Subject, &rec.HTML,
			&rec.ScheduledDate, &rec.Status, &rec.CreatedAt, &nextSend); err != nil {
			return nil, err
		}
		if nextSend.Valid {
			t := nextSend.Time
			rec.NextSendAfter = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ ScheduledEmailRepositoryInterface = (*PostgresScheduledEmailRepository)(nil)
