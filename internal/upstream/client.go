package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/krscode/mail-monit/internal/mail"
)

// DefaultEndpoint is the GraphQL endpoint of a local backend.
const DefaultEndpoint = "http://localhost:8088/graphql"

// FetchError reports a failed or unusable fetch of sendable mails.
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch sendable mails from %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Config holds the configuration for creating a Client.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Client queries the GraphQL backend for sendable mails.
type Client struct {
	endpoint string
	http     *resty.Client
	logger   *zap.Logger
}

// NewClient creates a Client for cfg.Endpoint.
func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		endpoint: endpoint,
		http:     rc,
		logger:   logger,
	}
}

// Endpoint returns the GraphQL endpoint the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchSendable returns the pending mails in backend order. Every failure,
// including a backend-reported error, is a *FetchError.
func (c *Client) FetchSendable(ctx context.Context) ([]mail.UpstreamMail, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(graphQLRequest{Query: SendableMailsQuery}).
		Post(c.endpoint)
	if err != nil {
		return nil, c.fail(fmt.Errorf("request failed: %w", err))
	}

	if !resp.IsSuccess() {
		return nil, c.fail(fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String()))
	}

	var body sendableMailsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, c.fail(fmt.Errorf("malformed response: %w", err))
	}

	if len(body.Errors) > 0 {
		return nil, c.fail(fmt.Errorf("graphql error: %s", body.Errors[0].Message))
	}
	if body.Data == nil || body.Data.GetSendableMails == nil {
		return nil, c.fail(errors.New("response has no getSendableMails data"))
	}

	result := body.Data.GetSendableMails
	if msg := result.errorMessage(); msg != "" {
		return nil, c.fail(fmt.Errorf("backend error: %s", msg))
	}

	mails := make([]mail.UpstreamMail, 0, len(result.Mails))
	for _, w := range result.Mails {
		mails = append(mails, w.toUpstreamMail())
	}

	c.logger.Debug("fetched sendable mails", zap.Int("count", len(mails)))
	return mails, nil
}

func (c *Client) fail(err error) *FetchError {
	return &FetchError{Endpoint: c.endpoint, Err: err}
}
