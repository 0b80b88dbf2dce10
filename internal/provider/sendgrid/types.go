// Package sendgrid implements a Provider that sends emails via the SendGrid
// v3 mail/send API.
package sendgrid

import (
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/krscode/mail-monit/internal/email"
)

// buildMail converts an email.Email into a SendGrid v3 mail. Recipient
// buckets and the attachment list serialize with omitempty, so empty ones
// are left out of the request body instead of being sent as [].
func buildMail(msg *email.Email) *sgmail.SGMailV3 {
	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail("", msg.From))
	m.Subject = msg.Subject

	p := sgmail.NewPersonalization()
	p.AddTos(addresses(msg.To)...)
	p.AddCCs(addresses(msg.Cc)...)
	p.AddBCCs(addresses(msg.Bcc)...)
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent(email.TypeHTML, msg.Body))

	for _, att := range msg.Attachments {
		a := sgmail.NewAttachment()
		a.SetContent(att.Content)
		a.SetType(att.Type)
		a.SetFilename(att.Filename)
		a.SetDisposition(att.Disposition)
		m.AddAttachment(a)
	}

	return m
}

// buildRequestBody returns the JSON request body for msg.
func buildRequestBody(msg *email.Email) []byte {
	return sgmail.GetRequestBody(buildMail(msg))
}

func addresses(list []string) []*sgmail.Email {
	out := make([]*sgmail.Email, 0, len(list))
	for _, addr := range list {
		out = append(out, sgmail.NewEmail("", addr))
	}
	return out
}
