// internal/model/email_log.go
package model

import "time"

// EmailLog is an append-only record of a message that left the system.
type EmailLog struct {
	ID      string    `db:"id" json:"id"`
	To      string    `db:"to_address" json:"to"`
	From    string    `db:"from_address" json:"from"`
	Subject string    `db:"subject" json:"subject"`
	Content string    `db:"content" json:"content"`
	Status  string    `db:"status" json:"status"` // sent, failed
	SentAt  time.Time `db:"sent_at" json:"sentAt"`
	Files   []string  `db:"files" json:"files"`
	Error   string    `db:"error,omitempty" json:"error,omitempty"`
}
