package mail

import (
	"bytes"
	"embed"
	"html/template"
	"net/url"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Builder renders notification messages for users.
type Builder struct {
	product  string
	linkBase string
}

// NewBuilder returns a Builder. linkBase is the verification URL prefix the
// escaped token is appended to.
func NewBuilder(product, linkBase string) *Builder {
	return &Builder{product: product, linkBase: linkBase}
}

func (b *Builder) Verification(u *models.User, token string) (Message, error) {
	return b.render(u, "Verify your email!", "verification.html", map[string]any{
		"Product": b.product,
		"Login":   u.Login,
		"Token":   token,
		"Link":    b.linkBase + url.QueryEscape(token),
	})
}

func (b *Builder) Welcome(u *models.User) (Message, error) {
	return b.render(u, "Welcome to "+b.product+"!", "welcome.html", map[string]any{
		"Product": b.product,
		"Login":   u.Login,
	})
}

func (b *Builder) AccessCode(u *models.User, code int) (Message, error) {
	return b.render(u, "Access code for password recovery", "access_code.html", map[string]any{
		"Product": b.product,
		"Login":   u.Login,
		"Code":    code,
	})
}

func (b *Builder) render(u *models.User, subject, name string, data map[string]any) (Message, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return Message{}, err
	}
	return Message{
		RecipientName:  u.Login,
		RecipientEmail: u.Email,
		Subject:        subject,
		Body:           body.String(),
	}, nil
}
