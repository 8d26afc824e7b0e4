// Package mail delivers the notifications of the account flows:
// verification links, welcome messages and recovery access codes.
package mail

import "context"

// Message is one outbound HTML email.
type Message struct {
	RecipientName  string
	RecipientEmail string
	Subject        string
	Body           string
}

// Sender delivers messages. Implementations must not retry on their own.
type Sender interface {
	Send(ctx context.Context, m Message) error
}
