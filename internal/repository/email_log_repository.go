// internal/repository/email_log_repository.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
)

const SentMailsFile = "sent_mails.csv"

type EmailLogRepositoryInterface interface {
	Append(ctx context.Context, entry model.EmailLog) error
	List(ctx context.Context) ([]model.EmailLog, error)
}

// CSVEmailLogRepository appends to sent_mails.csv. Columns:
// id,to,from,subject,content,status,sentAt,files (files is a JSON array).
type CSVEmailLogRepository struct {
	Path string
	mu   sync.Mutex
}

func NewCSVEmailLogRepository(dataDir string) *CSVEmailLogRepository {
	return &CSVEmailLogRepository{Path: filepath.Join(dataDir, SentMailsFile)}
}

type emailLogRow struct {
	ID      string `csv:"id"`
	To      string `csv:"to"`
	From    string `csv:"from"`
	Subject string `csv:"subject"`
	Content string `csv:"content"`
	Status  string `csv:"status"`
	SentAt  string `csv:"sentAt"`
	Files   string `csv:"files"`
}

func (r *CSVEmailLogRepository) Append(ctx context.Context, entry model.EmailLog) error {
	files := entry.Files
	if files == nil {
		files = []string{}
	}
	b, err := json.Marshal(files)
	if err != nil {
		return err
	}

	row := emailLogRow{
		ID:      entry.ID,
		To:      entry.To,
		From:    entry.From,
		Subject: entry.Subject,
		Content: entry.Content,
		Status:  entry.Status,
		SentAt:  entry.SentAt.UTC().Format(time.RFC3339Nano),
		Files:   string(b),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return appendCSVRow(r.Path, row)
}

func (r *CSVEmailLogRepository) List(ctx context.Context) ([]model.EmailLog, error) {
	r.mu.Lock()
	rows := []emailLogRow{}
	err := readCSVFile(r.Path, &rows)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logs := make([]model.EmailLog, 0, len(rows))
	for _, row := range rows {
		sentAt, err := time.Parse(time.RFC3339Nano, row.SentAt)
		if err != nil {
			return nil, appErrors.CorruptStore(r.Path, err)
		}
		// an unparsable attachment list is treated as no attachments
		files := []string{}
		if row.Files != "" {
			if err := json.Unmarshal([]byte(row.Files), &files); err != nil {
				files = []string{}
			}
		}
		logs = append(logs, model.EmailLog{
			ID:      row.ID,
			To:      row.To,
			From:    row.From,
			Subject: row.Subject,
			Content: row.Content,
			Status:  row.Status,
			SentAt:  sentAt,
			Files:   files,
		})
	}
	return logs, nil
}

// PostgresEmailLogRepository writes to the email_logs table.
type PostgresEmailLogRepository struct {
	DB *sql.DB
}

func (r *PostgresEmailLogRepository) Append(ctx context.Context, entry model.EmailLog) error {
	files := entry.Files
	if files == nil {
		files = []string{}
	}
	query := `
        INSERT INTO email_logs (id, to_address, from_address, subject, content, status, sent_at, files, error)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.DB.ExecContext(ctx, query, entry.ID, entry.To, entry.From, entry.Subject, entry.Content,
		entry.Status, entry.SentAt, pq.Array(files), entry.Error)
	return err
}

func (r *PostgresEmailLogRepository) List(ctx context.Context) ([]model.EmailLog, error) {
	query := `
        SELECT id, to_address, from_address, subject, content, status, sent_at, files, error
        FROM email_logs
        ORDER BY seq
    `
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.EmailLog{}
	for rows.Next() {
		var l model.EmailLog
		if err := rows.Scan(&l.ID, &l.To, &l.From, &l.Subject, &l.Content, &l.Status, &l.SentAt,
			pq.Array(&l.Files), &l.Error); err != nil {
			return nil, err
		}
		if l.Files == nil {
			l.Files = []string{}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

var (
	_ EmailLogRepositoryInterface = (*CSVEmailLogRepository)(nil)
	_ EmailLogRepositoryInterface = (*PostgresEmailLogRepository)(nil)
)
