// internal/mailer/smtp.go
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
)

// Attachment is a file sent alongside an immediate message.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Message is what the transport needs to deliver one email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Sender delivers a message through the given account and returns the
// Message-ID it was sent with.
type Sender interface {
	Send(ctx context.Context, account model.Account, msg Message) (string, error)
}

// Verifier checks that an account can connect and authenticate.
type Verifier interface {
	Verify(ctx context.Context, account model.Account) error
}

// SMTPSender talks to the account's SMTP server directly. Port 465 uses
// implicit TLS, everything else upgrades opportunistically.
type SMTPSender struct {
	// SendTimeout bounds one send. Zero means the caller's context alone.
	SendTimeout   time.Duration
	VerifyTimeout time.Duration
}

func NewSMTPSender(sendTimeout, verifyTimeout time.Duration) *SMTPSender {
	return &SMTPSender{SendTimeout: sendTimeout, VerifyTimeout: verifyTimeout}
}

func (s *SMTPSender) client(account model.Account, timeout time.Duration) (*mail.Client, error) {
	port := account.PortNumber()
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(account.Username),
		mail.WithPassword(account.Password),
	}
	if port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}
	return mail.NewClient(account.Server, opts...)
}

func (s *SMTPSender) Send(ctx context.Context, account model.Account, msg Message) (string, error) {
	m := mail.NewMsg()
	if err := m.From(fmt.Sprintf("<%s>", account.Username)); err != nil {
		return "", appErrors.NewTransportError("from", err)
	}
	if err := m.To(msg.To); err != nil {
		return "", appErrors.NewTransportError("to", err)
	}
	m.Subject(msg.Subject)

	switch {
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}

	for _, a := range msg.Attachments {
		var fileOpts []mail.FileOption
		if a.ContentType != "" {
			fileOpts = append(fileOpts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Content), fileOpts...); err != nil {
			return "", appErrors.NewTransportError("attach", err)
		}
	}

	messageID := newMessageID(account.Username)
	m.SetMessageIDWithValue(messageID)

	c, err := s.client(account, s.SendTimeout)
	if err != nil {
		return "", appErrors.NewTransportError("client", err)
	}

	if s.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.SendTimeout)
		defer cancel()
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return "", appErrors.NewTransportError("send", err)
	}
	return "<" + messageID + ">", nil
}

// Verify connects and authenticates without sending anything.
func (s *SMTPSender) Verify(ctx context.Context, account model.Account) error {
	timeout := s.VerifyTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := s.client(account, timeout)
	if err != nil {
		return appErrors.NewTransportError("client", err)
	}
	if err := c.DialWithContext(ctx); err != nil {
		return appErrors.NewTransportError("verify", err)
	}
	return c.Close()
}

// newMessageID builds a Message-ID value (without angle brackets) in the
// sender's domain.
func newMessageID(username string) string {
	domain := "localhost"
	if i := strings.LastIndex(username, "@"); i >= 0 && i < len(username)-1 {
		domain = username[i+1:]
	}
	return uuid.NewString() + "@" + domain
}

var (
	_ Sender   = (*SMTPSender)(nil)
	_ Verifier = (*SMTPSender)(nil)
)
