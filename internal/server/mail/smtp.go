package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// smtpSendMail is a seam for tests.
var smtpSendMail = smtp.SendMail

// SMTPSettings configure an SMTPSender. Auth is used only when User is set.
type SMTPSettings struct {
	Host        string
	Port        int
	User        string
	Password    string
	SenderName  string
	SenderEmail string
}

// SMTPSender sends messages through an SMTP relay (STARTTLS when offered).
type SMTPSender struct {
	settings SMTPSettings
	logger   logging.Logger
	now      func() time.Time
}

func NewSMTPSender(s SMTPSettings, l logging.Logger) *SMTPSender {
	return &SMTPSender{settings: s, logger: l.With("module", "smtp_sender"), now: time.Now}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.settings.User != "" {
		auth = smtp.PlainAuth("", s.settings.User, s.settings.Password, s.settings.Host)
	}

	addr := net.JoinHostPort(s.settings.Host, strconv.Itoa(s.settings.Port))
	if err := smtpSendMail(addr, auth, s.settings.SenderEmail, []string{m.RecipientEmail}, s.compose(m)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	s.logger.Info(ctx, "Email sent", "to", m.RecipientEmail, "subject", m.Subject)
	return nil
}

func (s *SMTPSender) compose(m Message) []byte {
	from := netmail.Address{Name: s.settings.SenderName, Address: s.settings.SenderEmail}
	to := netmail.Address{Name: m.RecipientName, Address: m.RecipientEmail}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	return b.Bytes()
}
