package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/krscode/mail-monit/internal/email"
	"github.com/krscode/mail-monit/internal/provider"
)

const graphScope = "https://graph.microsoft.com/.default"

// Config holds the configuration for creating a Provider.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string
	Logger       *zap.Logger
}

// Provider sends emails via the Microsoft Graph API using OAuth2 client
// credentials authentication.
type Provider struct {
	graphURL   string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Provider that sends as cfg.Sender.
func New(cfg Config) *Provider {
	tokenURL := fmt.Sprintf(
		"https://login.microsoftonline.com/%s/oauth2/v2.0/token",
		cfg.TenantID,
	)
	graphURL := fmt.Sprintf("https://graph.microsoft.com/v1.0/users/%s/sendMail", cfg.Sender)
	return newWithOverrides(cfg, graphURL, tokenURL, &http.Client{Timeout: 30 * time.Second})
}

// newWithOverrides creates a Provider with custom URLs and base HTTP client,
// used for testing.
func newWithOverrides(cfg Config, graphURL, tokenURL string, base *http.Client) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{graphScope},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	client := cc.Client(ctx)
	client.Timeout = base.Timeout

	return &Provider{
		graphURL:   graphURL,
		httpClient: client,
		logger:     logger,
	}
}

// Send delivers an email message via the Graph sendMail endpoint. Tokens
// are fetched and cached by the oauth2 transport.
func (g *Provider) Send(ctx context.Context, msg *email.Email) error {
	bodyJSON, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return &provider.DispatchError{Provider: g.Name(), Err: fmt.Errorf("failed to marshal request body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.graphURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return &provider.DispatchError{Provider: g.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &provider.DispatchError{Provider: g.Name(), Err: err}
	}
	defer resp.Body.Close()

	// HTTP 202 Accepted is success for sendMail
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		g.logger.Debug("graph accepted mail", zap.Int("status_code", resp.StatusCode))
		return nil
	}

	body, _ := io.ReadAll(resp.Body)

	message := string(body)
	var graphErrResp graphErrorResponse
	if jsonErr := json.Unmarshal(body, &graphErrResp); jsonErr == nil && graphErrResp.Error.Message != "" {
		message = graphErrResp.Error.Message
	}

	return &provider.DispatchError{
		Provider:   g.Name(),
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// Name returns the provider name.
func (g *Provider) Name() string {
	return "msgraph"
}
