package email

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NoopSender logs sends without delivering them. It is used when no
// provider key is configured, and keeps what it was asked to send.
type NoopSender struct {
	mu   sync.Mutex
	sent []SendRequest
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the email but does not deliver it.
// POST: Returns a noop result; req is recorded for Sent
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	s.mu.Lock()
	s.sent = append(s.sent, req)
	s.mu.Unlock()
	slog.Info("noop_email_send", "to", req.To, "subject", req.Subject)
	return SendResult{MessageID: "noop-" + uuid.NewString(), SentAt: time.Now()}, nil
}

// Sent returns every request passed to Send.
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.sent...)
}
