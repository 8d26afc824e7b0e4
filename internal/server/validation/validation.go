// Package validation checks request payloads and the decrypted values the
// account flows operate on.
package validation

import (
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/go-playground/validator/v10"
)

var loginPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

const (
	loginMinLen = 3
	loginMaxLen = 64
	emailMaxLen = 254
)

// Validator wraps a go-playground validator with the "login" tag registered.
// It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("login", validateLogin)
	return &Validator{validate: v}
}

// Struct validates s against its `validate` tags. Failures are reported as
// common.ErrInvalidRequest naming the first offending field.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", common.ErrInvalidRequest, errs[0].Field(), errs[0].Tag())
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	return nil
}

// Email reports common.ErrInvalidEmail for anything that is not a single
// syntactically valid address.
func (v *Validator) Email(email string) error {
	if len(email) > emailMaxLen {
		return common.ErrInvalidEmail
	}
	if err := v.validate.Var(email, "required,email"); err != nil {
		return common.ErrInvalidEmail
	}
	return nil
}

// Login reports common.ErrInvalidLogin unless login is 3 to 64 characters of
// letters, digits, '.', '_' or '-', starting with a letter or digit.
func (v *Validator) Login(login string) error {
	if err := v.validate.Var(login, "required,login"); err != nil {
		return common.ErrInvalidLogin
	}
	return nil
}

// Verifier reports common.ErrInvalidRequest unless v is a lowercase hex
// SHA-256 digest, the form clients derive password verifiers in.
func (v *Validator) Verifier(verifier string) error {
	if err := v.validate.Var(verifier, "required,len=64,hexadecimal,lowercase"); err != nil {
		return fmt.Errorf("%w: malformed verifier", common.ErrInvalidRequest)
	}
	return nil
}

func validateLogin(fl validator.FieldLevel) bool {
	login := fl.Field().String()
	if len(login) < loginMinLen || len(login) > loginMaxLen {
		return false
	}
	return loginPattern.MatchString(login)
}
