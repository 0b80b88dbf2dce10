// Package upstream fetches sendable mail records from the GraphQL backend.
package upstream

import (
	"encoding/json"
	"strings"

	"github.com/krscode/mail-monit/internal/mail"
)

// SendableMailsQuery retrieves every mail that is waiting to be sent.
const SendableMailsQuery = `query {
  getSendableMails {
    mails {
      correspondence {
        id
        fromEmail
        subject
        content
        mailType
      }
      receipients {
        toType
        toEmail
      }
    }
    error {
      message
    }
  }
}`

// graphQLRequest is the POST body of a GraphQL query.
type graphQLRequest struct {
	Query string `json:"query"`
}

// sendableMailsResponse is the envelope returned for SendableMailsQuery.
type sendableMailsResponse struct {
	Data   *responseData  `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type responseData struct {
	GetSendableMails *sendableMails `json:"getSendableMails"`
}

type sendableMails struct {
	Mails []wireMail `json:"mails"`
	// Error is either null, a plain string or an object with a message.
	Error json.RawMessage `json:"error"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type wireMail struct {
	Correspondence correspondence  `json:"correspondence"`
	Receipients    []wireRecipient `json:"receipients"`
}

type correspondence struct {
	ID        string `json:"id"`
	FromEmail string `json:"fromEmail"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	MailType  string `json:"mailType"`
}

type wireRecipient struct {
	ToType  string `json:"toType"`
	ToEmail string `json:"toEmail"`
}

// errorMessage extracts the backend error message, empty when there is none.
func (s *sendableMails) errorMessage() string {
	raw := strings.TrimSpace(string(s.Error))
	if raw == "" || raw == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(s.Error, &text); err == nil {
		return text
	}

	var obj graphQLError
	if err := json.Unmarshal(s.Error, &obj); err == nil {
		return obj.Message
	}

	return raw
}

// toUpstreamMail converts a wire record into the domain model.
func (w wireMail) toUpstreamMail() mail.UpstreamMail {
	recipients := make([]mail.Recipient, 0, len(w.Receipients))
	for _, r := range w.Receipients {
		recipients = append(recipients, mail.Recipient{
			Address: r.ToEmail,
			Role:    mail.ParseRole(r.ToType),
		})
	}

	c := w.Correspondence
	return mail.UpstreamMail{
		ID:         c.ID,
		From:       c.FromEmail,
		Subject:    c.Subject,
		Content:    c.Content,
		Type:       mail.ParseMailType(c.MailType),
		Recipients: recipients,
	}
}
