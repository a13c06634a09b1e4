// Package notify delivers one-time codes to users. Real mail transport
// lives outside this service; LogSender stands in for it.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// CodeSender hands a plaintext verification code to the delivery channel.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// LogSender writes an entry per code. The code itself is only printed
// when Reveal is set, which is meant for local development.
type LogSender struct {
	Logger *slog.Logger
	Reveal bool
}

func (s LogSender) SendVerificationCode(ctx context.Context, email, code string) error {
	args := []any{"email", email}
	if s.Reveal {
		args = append(args, "dev_code", code)
	}
	s.Logger.InfoContext(ctx, "verification code issued", args...)
	return nil
}

// Capture remembers the last code per address.
type Capture struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
}

func (c *Capture) SendVerificationCode(_ context.Context, email, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codes == nil {
		c.codes = map[string]string{}
	}
	c.codes[email] = code
	c.sent++
	return nil
}

func (c *Capture) Last(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[email]
}

func (c *Capture) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}
