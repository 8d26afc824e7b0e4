package models

import "time"

// PasswordRecover is one password-reset attempt. ConsumedAt is set when the
// code has been redeemed; a consumed code is never accepted again.
type PasswordRecover struct {
	ID         string
	UserID     string
	AccessCode int
	CreatedAt  time.Time
	ConsumedAt *time.Time
}

// ActiveAt reports whether the code is unconsumed and still within validity at now.
// A code created exactly validity ago is still active.
func (p *PasswordRecover) ActiveAt(now time.Time, validity time.Duration) bool {
	return p.ConsumedAt == nil && now.Sub(p.CreatedAt) <= validity
}
