package models

import "time"

// EmailVerification is one issued proof-of-email-ownership challenge. Token is
// a signed, expiring token whose subject is the owner's login.
type EmailVerification struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
}
