// Package models defines the records persisted by the gophauth server.
package models

import "time"

// VerificationState is the email-verification status of a user.
type VerificationState string

const (
	NotVerified VerificationState = "not_verified"
	Verified    VerificationState = "verified"
)

// Valid reports whether s is one of the two known states.
func (s VerificationState) Valid() bool {
	return s == NotVerified || s == Verified
}

// User is one account. Verifier is the client-derived one-way hash of the
// password; the plaintext never reaches the server.
type User struct {
	ID           string
	Login        string
	Email        string
	Verifier     string
	State        VerificationState
	RegisteredAt time.Time
}

// IsVerified reports whether the user has proven ownership of the email.
func (u *User) IsVerified() bool {
	return u.State == Verified
}
