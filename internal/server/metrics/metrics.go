// Package metrics counts the outcomes of the account flows and serves them,
// together with a health probe, on a separate HTTP listener.
package metrics

import (
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Recovery stages.
const (
	StageRequest = "request"
	StageRedeem  = "redeem"
)

// Metrics holds the flow counters. A nil *Metrics records nothing.
type Metrics struct {
	Logins             *prometheus.CounterVec
	Registrations      *prometheus.CounterVec
	EmailVerifications *prometheus.CounterVec
	PasswordRecoveries *prometheus.CounterVec
	PasswordChanges    *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_registrations_total",
			Help: "Registration attempts by result.",
		}, []string{"result"}),
		EmailVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_email_verifications_total",
			Help: "Verification token redemptions by result.",
		}, []string{"result"}),
		PasswordRecoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_password_recoveries_total",
			Help: "Password recovery requests and redemptions by stage and result.",
		}, []string{"stage", "result"}),
		PasswordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_password_changes_total",
			Help: "Password changes by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.Logins, m.Registrations, m.EmailVerifications, m.PasswordRecoveries, m.PasswordChanges)
	return m
}

func (m *Metrics) Login(err error) {
	if m != nil {
		m.Logins.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) Registration(err error) {
	if m != nil {
		m.Registrations.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) EmailVerification(err error) {
	if m != nil {
		m.EmailVerifications.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) PasswordRecovery(stage string, err error) {
	if m != nil {
		m.PasswordRecoveries.WithLabelValues(stage, Result(err)).Inc()
	}
}

func (m *Metrics) PasswordChange(err error) {
	if m != nil {
		m.PasswordChanges.WithLabelValues(Result(err)).Inc()
	}
}

var results = []struct {
	err   error
	label string
}{
	{common.ErrNotificationFailed, "notification_failed"},
	{common.ErrMalformedCiphertext, "malformed_ciphertext"},
	{common.ErrNonceMismatch, "nonce_mismatch"},
	{common.ErrInvalidEmail, "invalid_email"},
	{common.ErrInvalidLogin, "invalid_login"},
	{common.ErrInvalidRequest, "invalid_request"},
	{common.ErrLoginTaken, "login_taken"},
	{common.ErrEmailTaken, "email_taken"},
	{common.ErrAlreadyVerified, "already_verified"},
	{common.ErrNotVerified, "not_verified"},
	{common.ErrNoMatch, "no_match"},
	{common.ErrNonceReused, "nonce_reused"},
	{common.ErrUnknownToken, "unknown_token"},
	{common.ErrOwnerMismatch, "owner_mismatch"},
	{common.ErrSignatureInvalid, "signature_invalid"},
	{common.ErrCodeExpiredOrUnknown, "code_expired_or_unknown"},
	{common.ErrAmbiguousCode, "ambiguous_code"},
	{common.ErrorNotFound, "not_found"},
}

// Result turns an outcome into a bounded label value.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	for _, r := range results {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "error"
}
