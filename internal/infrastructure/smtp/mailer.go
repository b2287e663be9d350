package smtp

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/corpsite-backoffice/internal/config"
	"github.com/corpsite-backoffice/internal/domain"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg config.AlertConfig) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, buildMessage(m.from, to, subject, body))
}

// buildMessage renders a UTF-8 plain text message; the subject is B-encoded.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// InquiryAlert mails the inquiry inbox when a contact form is submitted.
type InquiryAlert struct {
	mailer Mailer
	inbox  string
}

func NewInquiryAlert(m Mailer, inbox string) *InquiryAlert {
	return &InquiryAlert{mailer: m, inbox: inbox}
}

func (a *InquiryAlert) Channel() string { return "email" }

func (a *InquiryAlert) NotifyInquiry(_ context.Context, inq *domain.Inquiry) error {
	subject := fmt.Sprintf("[문의] %s", inq.Subject)
	var body strings.Builder
	fmt.Fprintf(&body, "이름: %s\n", inq.Name)
	fmt.Fprintf(&body, "이메일: %s\n", inq.Email)
	if inq.Company != nil {
		fmt.Fprintf(&body, "회사: %s\n", *inq.Company)
	}
	if inq.Phone != nil {
		fmt.Fprintf(&body, "연락처: %s\n", *inq.Phone)
	}
	fmt.Fprintf(&body, "접수 시각: %s\n\n%s\n", inq.CreatedAt.Format("2006-01-02 15:04"), inq.Message)
	return a.mailer.SendEmail(a.inbox, subject, body.String())
}
