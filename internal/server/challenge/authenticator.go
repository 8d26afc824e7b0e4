// Package challenge verifies nonce-based login signatures. The server only
// ever sees hash(login ++ nonce ++ verifier), never the verifier itself.
package challenge

import (
	"crypto/subtle"
	"iter"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Candidate is one stored credential a signature may have been made with.
type Candidate struct {
	UserID   string
	Login    string
	Verifier string
	State    models.VerificationState
}

// FromUser builds a Candidate from a stored user.
func FromUser(u *models.User) Candidate {
	return Candidate{UserID: u.ID, Login: u.Login, Verifier: u.Verifier, State: u.State}
}

// Authenticator matches signatures against candidates. It holds no state.
type Authenticator struct{}

func NewAuthenticator() *Authenticator {
	return &Authenticator{}
}

// Authenticate returns the candidate whose signature equals signature.
// No match yields common.ErrNoMatch; a match whose email is not verified
// yields common.ErrNotVerified together with the matched candidate.
func (a *Authenticator) Authenticate(candidates iter.Seq[Candidate], nonce, signature string) (Candidate, error) {
	if nonce == "" || signature == "" {
		return Candidate{}, common.ErrNoMatch
	}

	for c := range candidates {
		if !Matches(c, nonce, signature) {
			continue
		}
		if c.State != models.Verified {
			return c, common.ErrNotVerified
		}
		return c, nil
	}

	return Candidate{}, common.ErrNoMatch
}

// Matches reports whether signature was produced from c and nonce.
// Comparison is exact and constant time.
func Matches(c Candidate, nonce, signature string) bool {
	expected := cryptox.Signature(c.Login, nonce, c.Verifier)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
