package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlastours/atlas-api/internal/models"
)

type fakeSender struct {
	sent []*Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg *Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestSendWelcome(t *testing.T) {
	fake := &fakeSender{}
	m := NewWithSender(fake)

	err := m.SendWelcome(context.Background(), &models.User{Name: "Ava", Email: "ava@x.com"}, "https://example.com/me")
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)

	msg := fake.sent[0]
	assert.Equal(t, "ava@x.com", msg.To)
	assert.Contains(t, msg.Subject, "Welcome")
	assert.Contains(t, msg.Text, "https://example.com/me")
}

func TestSendPasswordResetCarriesURL(t *testing.T) {
	fake := &fakeSender{}
	m := NewWithSender(fake)

	err := m.SendPasswordReset(context.Background(), &models.User{Name: "Ava", Email: "ava@x.com"},
		"https://example.com/api/v1/users/resetPassword/rawtoken")
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)

	assert.Contains(t, fake.sent[0].Text, "resetPassword/rawtoken")
	assert.Contains(t, fake.sent[0].Subject, "10 minutes")
}

func TestSendFailurePropagates(t *testing.T) {
	fake := &fakeSender{err: errors.New("transport down")}
	m := NewWithSender(fake)

	err := m.SendWelcome(context.Background(), &models.User{Email: "ava@x.com"}, "url")
	assert.Error(t, err)
}
