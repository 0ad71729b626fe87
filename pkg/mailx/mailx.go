// Package mailx delivers transactional email through a pluggable Sender.
// SMTP covers Mailtrap in development and any relay in production, SES is
// there for AWS deployments, and Log is for local runs without a mailbox.
package mailx

import (
	"context"
	"errors"
	"net/mail"
)

var (
	ErrNoRecipient = errors.New("mailx: message has no recipient")
	ErrNoBody      = errors.New("mailx: message has neither text nor html body")
)

// Message is a single email. Text and HTML are alternatives of the same
// content; at least one must be set.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return err
	}
	if m.Text == "" && m.HTML == "" {
		return ErrNoBody
	}
	return nil
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// From is the envelope sender shared by every transport.
type From struct {
	Name    string
	Address string
}

func (f From) String() string {
	a := mail.Address{Name: f.Name, Address: f.Address}
	return a.String()
}
