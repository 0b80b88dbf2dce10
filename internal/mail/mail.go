// Package mail defines the upstream mail record and classifies its
// recipients into To, Cc and Bcc buckets.
package mail

import "strings"

// MailType distinguishes plain mail from calendar event mail.
type MailType int

const (
	Plain MailType = iota
	Event
)

// ParseMailType maps the upstream mailType token. Only "event" selects
// event mail; every other value, including the empty string, is plain.
func ParseMailType(token string) MailType {
	if token == "event" {
		return Event
	}
	return Plain
}

func (t MailType) String() string {
	if t == Event {
		return "event"
	}
	return "plain"
}

// Role is the addressing role of a recipient.
type Role int

const (
	RoleUnknown Role = iota
	RoleTo
	RoleCc
	RoleBcc
)

// ParseRole matches the role token case-insensitively. Anything other than
// to, cc or bcc is RoleUnknown.
func ParseRole(token string) Role {
	switch {
	case strings.EqualFold(token, "to"):
		return RoleTo
	case strings.EqualFold(token, "cc"):
		return RoleCc
	case strings.EqualFold(token, "bcc"):
		return RoleBcc
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleTo:
		return "to"
	case RoleCc:
		return "cc"
	case RoleBcc:
		return "bcc"
	default:
		return "unknown"
	}
}

// Recipient is a single addressee of an upstream mail.
type Recipient struct {
	Address string
	Role    Role
}

// UpstreamMail is a pending-send mail record fetched from the source system.
// For event mail, Content holds the JSON encoded event description.
type UpstreamMail struct {
	ID         string
	From       string
	Subject    string
	Content    string
	Type       MailType
	Recipients []Recipient
}
