// Package transform converts upstream mail records into outbound emails.
package transform

import (
	"fmt"

	"github.com/krscode/mail-monit/internal/calendar"
	"github.com/krscode/mail-monit/internal/email"
	"github.com/krscode/mail-monit/internal/mail"
)

// ArtifactBuilder produces the calendar attachment for an event mail.
type ArtifactBuilder interface {
	Build(ev calendar.EventPayload, subject string) (email.Attachment, error)
}

// Transformer turns an UpstreamMail into an outbound Email.
type Transformer struct {
	artifacts ArtifactBuilder
}

// New creates a Transformer that uses artifacts for event mail.
func New(artifacts ArtifactBuilder) *Transformer {
	return &Transformer{artifacts: artifacts}
}

// Transform builds the outbound email for m.
//
// Plain mail keeps its content as the body. For event mail the content is
// decoded as a calendar.EventPayload, the event description becomes the body
// and the rendered .ics is attached, summarised with the mail subject.
func (t *Transformer) Transform(m mail.UpstreamMail) (*email.Email, error) {
	if m.Type != mail.Event {
		return build(m, m.Content), nil
	}

	ev, err := calendar.ParseEvent(m.Content)
	if err != nil {
		return nil, fmt.Errorf("mail %s: %w", m.ID, err)
	}

	out := build(m, ev.Description)

	att, err := t.artifacts.Build(ev, m.Subject)
	if err != nil {
		return nil, fmt.Errorf("mail %s: %w", m.ID, err)
	}
	out.Attachments = []email.Attachment{att}

	return out, nil
}

func build(m mail.UpstreamMail, body string) *email.Email {
	groups := mail.Classify(m.Recipients)
	return &email.Email{
		From:    m.From,
		To:      groups.To,
		Cc:      groups.Cc,
		Bcc:     groups.Bcc,
		Subject: m.Subject,
		Body:    body,
	}
}
