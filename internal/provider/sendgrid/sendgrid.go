package sendgrid

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"go.uber.org/zap"

	"github.com/krscode/mail-monit/internal/email"
	"github.com/krscode/mail-monit/internal/provider"
)

// DefaultHost is the SendGrid API host.
const DefaultHost = "https://api.sendgrid.com"

// DefaultTimeout bounds a single mail/send call.
const DefaultTimeout = 30 * time.Second

const sendEndpoint = "/v3/mail/send"

// Config holds the configuration for creating a Provider.
type Config struct {
	APIKey string
	// Host is the API base URL. A full mail/send URL is accepted too.
	Host string
	// Timeout bounds each request; DefaultTimeout when zero.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Provider sends emails through the SendGrid v3 API with a bearer API key.
type Provider struct {
	apiKey string
	host   string
	client *rest.Client
	logger *zap.Logger
}

// New creates a SendGrid Provider.
func New(cfg Config) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Provider{
		apiKey: cfg.APIKey,
		host:   normalizeHost(cfg.Host),
		client: &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		logger: logger,
	}
}

// Send posts the email to the mail/send endpoint. Any transport error or
// non-2xx response is returned as a *provider.DispatchError.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	req := sendgrid.GetRequest(p.apiKey, sendEndpoint, p.host)
	req.Method = http.MethodPost
	req.Headers["Content-Type"] = "application/json"
	req.Body = buildRequestBody(msg)

	resp, err := p.client.SendWithContext(ctx, req)
	if err != nil {
		return &provider.DispatchError{Provider: p.Name(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &provider.DispatchError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Message:    resp.Body,
		}
	}

	p.logger.Debug("sendgrid accepted mail",
		zap.Int("status_code", resp.StatusCode),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "sendgrid"
}

// normalizeHost strips a trailing mail/send path so that the legacy
// SENDGRID_URL form keeps working.
func normalizeHost(host string) string {
	if host == "" {
		return DefaultHost
	}
	host = strings.TrimRight(host, "/")
	host = strings.TrimSuffix(host, sendEndpoint)
	return host
}
