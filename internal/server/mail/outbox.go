package mail

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// OutboxSender writes messages to w instead of delivering them. It is used
// when no SMTP relay is configured, e.g. in local development.
type OutboxSender struct {
	mu     sync.Mutex
	w      io.Writer
	logger logging.Logger
}

func NewOutboxSender(w io.Writer, l logging.Logger) *OutboxSender {
	return &OutboxSender{w: w, logger: l.With("module", "outbox_sender")}
}

func (o *OutboxSender) Send(ctx context.Context, m Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := fmt.Fprintf(o.w, "To: %s <%s>\nSubject: %s\n\n%s\n---\n", m.RecipientName, m.RecipientEmail, m.Subject, m.Body); err != nil {
		return err
	}
	o.logger.Warn(ctx, "SMTP is not configured, message written to outbox", "to", m.RecipientEmail, "subject", m.Subject)
	return nil
}
