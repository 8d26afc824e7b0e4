package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// service specific errors
	ErrorInternal = errors.New("internal error")

	// input errors
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrInvalidLogin        = errors.New("invalid login")
	ErrNonceMismatch       = errors.New("nonce mismatch")
	ErrInvalidRequest      = errors.New("invalid request")

	// state conflicts
	ErrLoginTaken      = errors.New("login is already taken")
	ErrEmailTaken      = errors.New("email is already taken")
	ErrAlreadyVerified = errors.New("email is already verified")
	ErrNotVerified     = errors.New("email is not verified")

	// integrity errors
	ErrNoMatch              = errors.New("invalid credentials")
	ErrNonceReused          = errors.New("nonce already used")
	ErrUnknownToken         = errors.New("unknown verification token")
	ErrOwnerMismatch        = errors.New("verification token owner mismatch")
	ErrSignatureInvalid     = errors.New("verification token signature invalid")
	ErrCodeExpiredOrUnknown = errors.New("access code expired or unknown")
	ErrAmbiguousCode        = errors.New("ambiguous access code")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")

	// dependency failures
	ErrNotificationFailed = errors.New("notification failed")
)
