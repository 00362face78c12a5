package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mohitkumar/funnel/logger"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var ErrNoMailer = errors.New("no mailer configured")
var ErrInvalidHeader = errors.New("email header contains a line break")

type Email struct {
	To      string
	Subject string
	Content string
}

type Mailer interface {
	SendEmail(ctx context.Context, email Email) error
}

type SmtpConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

var _ Mailer = new(SmtpMailer)

type SmtpMailer struct {
	conf SmtpConfig
}

func NewSmtpMailer(conf SmtpConfig) *SmtpMailer {
	return &SmtpMailer{conf: conf}
}

func (m *SmtpMailer) SendEmail(ctx context.Context, email Email) error {
	msg, err := m.newMessage(email)
	if err != nil {
		return err
	}
	opts := []mail.Option{
		mail.WithPort(m.conf.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if len(m.conf.Username) != 0 {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.conf.Username),
			mail.WithPassword(m.conf.Password),
		)
	}
	client, err := mail.NewClient(m.conf.Host, opts...)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		logger.Error("error sending email", zap.String("to", email.To), zap.Error(err))
		return err
	}
	return nil
}

// newMessage builds the mail. Header values come from rendered templates, so
// a line break in any of them is refused rather than written as a new header.
func (m *SmtpMailer) newMessage(email Email) (*mail.Msg, error) {
	for _, value := range []string{m.conf.From, email.To, email.Subject} {
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, value)
		}
	}
	msg := mail.NewMsg()
	if err := msg.From(m.conf.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.conf.From, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Content)
	return msg, nil
}

var _ Mailer = new(LogMailer)

// LogMailer records emails instead of sending them.
type LogMailer struct {
	mu   sync.Mutex
	sent []Email
}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendEmail(ctx context.Context, email Email) error {
	m.mu.Lock()
	m.sent = append(m.sent, email)
	m.mu.Unlock()
	logger.Info("email sent", zap.String("to", email.To), zap.String("subject", email.Subject))
	return nil
}

func (m *LogMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.sent))
	copy(out, m.sent)
	return out
}
