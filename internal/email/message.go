// Package email defines the outbound email model handed to delivery providers.
package email

// Attachment dispositions and media types used by outbound mail.
const (
	DispositionAttachment = "attachment"
	TypeCalendar          = "text/calendar"
	TypeHTML              = "text/html"
)

// Email is a provider-neutral outbound message. Recipient buckets that are
// empty are left nil; providers must omit them on the wire.
type Email struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Attachment is a file attached to an outbound message. Content is already
// base64 encoded.
type Attachment struct {
	Filename    string
	Content     string
	Type        string
	Disposition string
}

// HasRecipients reports whether at least one recipient bucket is non-empty.
func (e *Email) HasRecipients() bool {
	return len(e.To)+len(e.Cc)+len(e.Bcc) > 0
}
