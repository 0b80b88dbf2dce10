// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"
	"fmt"

	"github.com/krscode/mail-monit/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider maps the outbound email onto its own API (SendGrid, SES,
// Microsoft Graph, stdout).
type Provider interface {
	// Send delivers an email message through this provider.
	// It returns a *DispatchError if the delivery fails.
	Send(ctx context.Context, msg *email.Email) error

	// Name returns the human-readable name of this provider.
	Name() string
}

// DispatchError reports a failed outbound send. Providers never retry; the
// caller decides what to do with the failed mail.
type DispatchError struct {
	Provider string
	// StatusCode is the HTTP status returned by the API, zero when the
	// request never got a response.
	StatusCode int
	Message    string
	Err        error
}

func (e *DispatchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s dispatch failed (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s dispatch failed: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s dispatch failed: %s", e.Provider, e.Message)
	}
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
