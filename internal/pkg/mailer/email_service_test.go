package mailer

import (
	"bytes"
	"errors"
	"testing"

	"medimate-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func newTestService(d *recordingDialer) *emailService {
	return &emailService{dialer: d, senderEmail: "noreply@medimate.test", senderName: "MediMate", logger: logger.NewNopLogger()}
}

func TestSendVerificationLink(t *testing.T) {
	d := &recordingDialer{}
	svc := newTestService(d)

	link := "http://localhost:3000/api/auth/verify-email?token=abc"
	require.NoError(t, svc.SendVerificationLink("alice@example.com", "Alice", link))
	require.Len(t, d.sent, 1)

	assert.Equal(t, []string{"alice@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Verify your MediMate email"}, d.sent[0].GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Welcome to MediMate!")
}

func TestSendFailure(t *testing.T) {
	d := &recordingDialer{err: errors.New("smtp down")}
	svc := newTestService(d)

	assert.Error(t, svc.SendVerificationLink("alice@example.com", "", "http://x"))
	assert.Error(t, svc.SendPasswordChanged("alice@example.com", ""))
}
