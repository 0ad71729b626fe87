// Package mail renders the account emails and hands them to a mailx.Sender.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"

	"github.com/eduflowhub/eduflow/pkg/mailx"
	"github.com/eduflowhub/eduflow/pkg/slogx"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

type templates struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func parse(name string) templates {
	return templates{
		html: htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/layout.html.tmpl", "templates/"+name+".html.tmpl")),
		text: texttemplate.Must(texttemplate.ParseFS(templatesFS, "templates/"+name+".txt.tmpl")),
	}
}

var (
	verificationTmpl    = parse("verification")
	passwordChangedTmpl = parse("password_changed")
)

type data struct {
	Subject   string
	AppName   string
	ClientURL string
	Name      string
	Code      string
	ExpiresIn string
	When      string
	Year      int
}

// Mailer sends the verification and password-changed emails.
type Mailer struct {
	Sender    mailx.Sender
	AppName   string
	ClientURL string

	// CodeTTL is printed in the verification email.
	CodeTTL time.Duration
	Now     func() time.Time
}

func (m *Mailer) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Mailer) base(subject, name string) data {
	return data{
		Subject:   subject,
		AppName:   m.AppName,
		ClientURL: m.ClientURL,
		Name:      name,
		Year:      m.now().Year(),
	}
}

func (m *Mailer) SendVerification(ctx context.Context, email, name, code string) error {
	d := m.base(fmt.Sprintf("Verify Your Email - %s", m.AppName), name)
	d.Code = code
	d.ExpiresIn = humanize(m.CodeTTL)

	return m.send(ctx, email, d, verificationTmpl)
}

func (m *Mailer) SendPasswordChanged(ctx context.Context, email, name string) error {
	d := m.base(fmt.Sprintf("Your Password Was Changed - %s", m.AppName), name)
	d.When = m.now().UTC().Format("2 Jan 2006 15:04 MST")

	return m.send(ctx, email, d, passwordChangedTmpl)
}

func (m *Mailer) send(ctx context.Context, to string, d data, t templates) error {
	var html, text bytes.Buffer
	if err := t.html.ExecuteTemplate(&html, "layout", d); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := t.text.Execute(&text, d); err != nil {
		return fmt.Errorf("render text: %w", err)
	}

	err := m.Sender.Send(ctx, mailx.Message{
		To:      to,
		Subject: d.Subject,
		Text:    text.String(),
		HTML:    html.String(),
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to send email",
			slog.String("subject", d.Subject),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

func humanize(d time.Duration) string {
	if d <= 0 {
		d = 5 * time.Minute
	}
	if d%time.Minute == 0 {
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", n)
	}
	return d.String()
}
