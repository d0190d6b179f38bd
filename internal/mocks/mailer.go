package mocks

import (
	"context"
	"sync"

	"github.com/blog-cms-api/internal/mailer"
)

// MockSender records every message and fails for selected recipients
type MockSender struct {
	mu       sync.Mutex
	Sent     []mailer.Message
	Attempts []string
	// FailFor maps a recipient address to the error its send returns.
	FailFor  map[string]error
	SendFunc func(ctx context.Context, msg mailer.Message) error
}

var _ mailer.Sender = (*MockSender)(nil)

func NewMockSender() *MockSender {
	return &MockSender{FailFor: make(map[string]error)}
}

func (m *MockSender) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Attempts = append(m.Attempts, msg.To)
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, msg); err != nil {
			return err
		}
	}
	if err := m.FailFor[msg.To]; err != nil {
		return err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// SentTo returns the recipients of successfully sent messages in order
func (m *MockSender) SentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.Sent))
	for _, msg := range m.Sent {
		out = append(out, msg.To)
	}
	return out
}
