package channel

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSmtpMailerRefusesLineBreaksInHeaders(t *testing.T) {
	mailer := NewSmtpMailer(SmtpConfig{Host: "127.0.0.1", Port: 1, From: "shop@example.com"})
	tests := map[string]Email{
		"subject":   {To: "ana@example.com", Subject: "hi\r\nBcc: victim@evil.test", Content: "body"},
		"bare lf":   {To: "ana@example.com", Subject: "hi\nBcc: victim@evil.test", Content: "body"},
		"recipient": {To: "ana@example.com\r\nBcc: victim@evil.test", Subject: "hi", Content: "body"},
	}
	for name, email := range tests {
		t.Run(name, func(t *testing.T) {
			err := mailer.SendEmail(context.Background(), email)
			require.ErrorIs(t, err, ErrInvalidHeader)
		})
	}
}

func TestSmtpMailerMessage(t *testing.T) {
	mailer := NewSmtpMailer(SmtpConfig{Host: "127.0.0.1", Port: 25, From: "shop@example.com"})
	msg, err := mailer.newMessage(Email{To: "ana@example.com", Subject: "Welcome", Content: "Hi Ana"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Subject: Welcome")
	require.Contains(t, buf.String(), "Hi Ana")
	require.NotContains(t, buf.String(), "Bcc:")

	_, err = mailer.newMessage(Email{To: "not an address", Subject: "Welcome"})
	require.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	mailer := NewLogMailer()
	require.NoError(t, mailer.SendEmail(context.Background(), Email{To: "a@b.c", Subject: "s"}))
	require.Len(t, mailer.Sent(), 1)
}
