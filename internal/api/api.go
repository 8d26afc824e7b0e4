// Package api defines the wire contract of the gophauth.AuthService gRPC
// service: method names, request and response messages and the mapping
// between service errors and gRPC statuses. Messages travel JSON encoded
// (content subtype "json").
package api

const ServiceName = "gophauth.AuthService"

// Method names.
const (
	MethodGetPublicKey       = "GetPublicKey"
	MethodRegister           = "Register"
	MethodLogin              = "Login"
	MethodRedeemVerification = "RedeemVerification"
	MethodResendVerification = "ResendVerification"
	MethodForgotPassword     = "ForgotPassword"
	MethodRecoverPassword    = "RecoverPassword"
	MethodChangePassword     = "ChangePassword"
	MethodPing               = "Ping"
)

// FullMethod returns the "/service/method" path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Empty is the message of calls without arguments or results.
type Empty struct{}

type GetPublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// RegisterRequest carries the login in clear and the email and verifier
// sealed as Encrypt(nonce ++ value).
type RegisterRequest struct {
	Login    string `json:"login" validate:"required,login"`
	Email    string `json:"email" validate:"required,base64"`
	Nonce    string `json:"nonce" validate:"required,max=256"`
	Verifier string `json:"verifier" validate:"required,base64"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
	Login  string `json:"login"`
}

// LoginRequest proves password knowledge with
// Signature = hex(sha256(login ++ nonce ++ verifier)). Login may be omitted.
type LoginRequest struct {
	Login     string `json:"login,omitempty" validate:"omitempty,login"`
	Nonce     string `json:"nonce" validate:"required,max=256"`
	Signature string `json:"signature" validate:"required,len=64,hexadecimal"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type RedeemVerificationRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

// RedeemVerificationResponse reports AlreadyVerified when the account had
// been verified before this redemption.
type RedeemVerificationResponse struct {
	Login           string `json:"login"`
	Verified        bool   `json:"verified"`
	AlreadyVerified bool   `json:"already_verified,omitempty"`
}

// SealedEmailRequest is used by ResendVerification and ForgotPassword.
type SealedEmailRequest struct {
	Email string `json:"email" validate:"required,base64"`
	Nonce string `json:"nonce" validate:"required,max=256"`
}

type RecoverPasswordRequest struct {
	AccessCode int    `json:"access_code" validate:"required"`
	Verifier   string `json:"verifier" validate:"required,base64"`
	Nonce      string `json:"nonce" validate:"required,max=256"`
}

// ChangePasswordRequest is authorised by the session token in the
// access_token metadata header and a fresh signature over the current verifier.
type ChangePasswordRequest struct {
	Nonce     string `json:"nonce" validate:"required,max=256"`
	Signature string `json:"signature" validate:"required,len=64,hexadecimal"`
	Verifier  string `json:"verifier" validate:"required,base64"`
}

type PingResponse struct {
	Status string `json:"status"`
}
