package mailx

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

// SMTP sends through an authenticated relay using STARTTLS when the server
// offers it.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     From

	// Now stamps the Date header.
	Now func() time.Time

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(host string, port int, username, password string, from From) *SMTP {
	return &SMTP{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		Now:      time.Now,
		send:     smtp.SendMail,
	}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	// net/smtp has no context support, so only an already cancelled request
	// is honoured.
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := buildMIME(s.From, msg, s.Now())
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	if err := s.send(addr, auth, s.From.Address, []string{msg.To}, body); err != nil {
		return fmt.Errorf("mailx: smtp send: %w", err)
	}
	return nil
}

// buildMIME renders msg as a multipart/alternative message, plain text first
// so clients that prefer HTML pick the last part.
func buildMIME(from From, msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%q\r\n\r\n",
		from.String(),
		msg.To,
		mime.QEncoding.Encode("utf-8", msg.Subject),
		now.Format(time.RFC1123Z),
		mw.Boundary(),
	)
	out := bytes.NewBufferString(header)

	parts := []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	out.Write(buf.Bytes())
	return out.Bytes(), nil
}
