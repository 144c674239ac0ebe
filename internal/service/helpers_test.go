package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

const senderUser = "sender@example.com"

// MockSender records every message and fails for recipients listed in failFor.
type MockSender struct {
	mu      sync.Mutex
	failFor map[string]error
	sent    []mailer.Message
	calls   int
}

func (m *MockSender) Send(ctx context.Context, account model.Account, msg mailer.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.failFor[msg.To]; ok {
		return "", err
	}
	m.sent = append(m.sent, msg)
	return fmt.Sprintf("<%d@example.com>", len(m.sent)), nil
}

func (m *MockSender) Sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

func (m *MockSender) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fixture struct {
	dir       string
	scheduled *repository.CSVScheduledEmailRepository
	logs      *repository.CSVEmailLogRepository
	accounts  *repository.AccountRepository
	contacts  *repository.ContactRepository
	sender    *MockSender
	svc       *service.DispatchService
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:       dir,
		scheduled: repository.NewCSVScheduledEmailRepository(dir),
		logs:      repository.NewCSVEmailLogRepository(dir),
		accounts:  repository.NewAccountRepository(dir),
		contacts:  repository.NewContactRepository(dir),
		sender:    &MockSender{failFor: map[string]error{}},
		now:       time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.accounts.Create(model.Account{Server: "smtp.example.com", Port: "587", Username: senderUser, Password: "pw"}))

	f.svc = service.NewDispatchService(f.scheduled, f.accounts, f.contacts, f.logs, f.sender)
	f.svc.Now = func() time.Time { return f.now }
	f.svc.Delay = func() time.Duration { return 90 * time.Minute }
	return f
}

func (f *fixture) seed(t *testing.T, records ...model.ScheduledEmail) {
	t.Helper()
	require.NoError(t, f.scheduled.WriteAll(context.Background(), records))
}

func (f *fixture) byID(t *testing.T) map[string]model.ScheduledEmail {
	t.Helper()
	records, err := f.scheduled.ReadAll(context.Background())
	require.NoError(t, err)
	out := make(map[string]model.ScheduledEmail, len(records))
	for _, r := range records {
		out[r.ID] = r
	}
	return out
}

func pendingEmail(id string, at time.Time) model.ScheduledEmail {
	return model.ScheduledEmail{
		ID:            id,
		To:            id + "@client.com",
		FromAccount:   senderUser,
		Subject:       "Quick question",
		HTML:          "<p>Hi {{name}}</p>",
		ScheduledDate: at,
		Status:        model.StatusPending,
		CreatedAt:     at.Add(-24 * time.Hour),
	}
}

// failingRepo serves a fixed snapshot and fails every write.
type failingRepo struct {
	records []model.ScheduledEmail
}

var errDiskFull = errors.New("disk full")

func (r *failingRepo) ReadAll(ctx context.Context) ([]model.ScheduledEmail, error) {
	return append([]model.ScheduledEmail(nil), r.records...), nil
}

func (r *failingRepo) WriteAll(ctx context.Context, records []model.ScheduledEmail) error {
	return errDiskFull
}

func (r *failingRepo) Update(ctx context.Context, fn repository.UpdateFunc) error {
	return errDiskFull
}
