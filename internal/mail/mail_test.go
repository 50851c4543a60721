package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/opsmind/auth/internal/domain"
)

func raw(t *testing.T, m *gomail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestRenderOTP(t *testing.T) {
	t.Parallel()

	msg, err := RenderOTP("noreply@opsmind.com", "a@miuegypt.edu.eg", "012345", domain.PurposeVerification, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{SubjectVerification}, msg.GetGenHeader(gomail.HeaderSubject))
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@miuegypt.edu.eg"}, rcpts)

	s := raw(t, msg)
	assert.Contains(t, s, "Subject: Verify Your OpsMind Account")
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "text/plain")
	assert.Contains(t, s, "text/html")
	assert.Contains(t, s, "012345")
	assert.Contains(t, s, "verify your account")
	assert.Contains(t, s, "5 minutes")

	msg, err = RenderOTP("noreply@opsmind.com", "a@miuegypt.edu.eg", "999999", domain.PurposeLogin, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{SubjectLogin}, msg.GetGenHeader(gomail.HeaderSubject))
	s = raw(t, msg)
	assert.Contains(t, s, "complete your login")
	assert.Contains(t, s, "10 minutes")
}

func TestRenderOTP_RejectsHeaderInjection(t *testing.T) {
	t.Parallel()

	_, err := RenderOTP("noreply@opsmind.com", "a@b.c\r\nBcc: evil@x.y", "123456", domain.PurposeLogin, 5*time.Minute)
	assert.Error(t, err)

	_, err = RenderOTP("not an address", "a@miuegypt.edu.eg", "123456", domain.PurposeLogin, 5*time.Minute)
	assert.Error(t, err)
}

func TestNewSMTPSender(t *testing.T) {
	t.Parallel()

	for _, port := range []int{25, 587, 465, 1025} {
		_, err := NewSMTPSender(SMTPConfig{Host: "smtp.test", Port: port, Username: "u", Password: "p"})
		require.NoError(t, err, "port %d", port)
	}

	_, err := NewSMTPSender(SMTPConfig{Host: "smtp.test", Port: 0})
	assert.ErrorIs(t, err, gomail.ErrInvalidPort)

	_, err = NewSMTPSender(SMTPConfig{Host: "", Port: 25})
	assert.ErrorIs(t, err, gomail.ErrNoHostname)
}

func TestSMTPSender_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.test", Port: 587, Username: "u", Password: "p", From: "noreply@opsmind.com", ValidFor: 5 * time.Minute, Retries: 3})
	require.NoError(t, err)
	calls := 0
	var got *gomail.Msg
	s.deliver = func(_ context.Context, msgs ...*gomail.Msg) error {
		calls++
		if calls < 3 {
			return errors.New("421 try again")
		}
		require.Len(t, msgs, 1)
		got = msgs[0]
		return nil
	}

	require.NoError(t, s.SendOTP(context.Background(), "a@miuegypt.edu.eg", "424242", domain.PurposeLogin))
	assert.Equal(t, 3, calls)
	require.NotNil(t, got)
	assert.Equal(t, []string{"<noreply@opsmind.com>"}, got.GetFromString())
	assert.Contains(t, raw(t, got), "424242")
}

func TestSMTPSender_GivesUp(t *testing.T) {
	t.Parallel()

	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.test", Port: 25, From: "noreply@opsmind.com", Retries: 1})
	require.NoError(t, err)
	calls := 0
	s.deliver = func(context.Context, ...*gomail.Msg) error {
		calls++
		return errors.New("connection refused")
	}

	err = s.SendOTP(context.Background(), "a@miuegypt.edu.eg", "000000", domain.PurposeVerification)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestLogSender_DoesNotLogCode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := LogSender{Log: slog.New(slog.NewJSONHandler(&buf, nil))}
	require.NoError(t, s.SendOTP(context.Background(), "a@miuegypt.edu.eg", "918273", domain.PurposeLogin))

	out := buf.String()
	assert.Contains(t, out, "otp_email_suppressed")
	assert.Contains(t, out, "a@miuegypt.edu.eg")
	assert.NotContains(t, out, "918273")
}
