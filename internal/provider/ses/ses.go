// Package ses implements a Provider that sends emails via AWS SES v2.
package ses

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"github.com/krscode/mail-monit/internal/email"
	"github.com/krscode/mail-monit/internal/provider"
)

// Config holds the configuration for creating a Provider.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Sender overrides the From address of every mail when set.
	Sender string
	Logger *zap.Logger
}

// Provider sends emails via the AWS SES v2 API.
type Provider struct {
	sender string
	client SendEmailAPI
	logger *zap.Logger
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a Provider using the default AWS credential chain, or static
// credentials when both keys are configured.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(cfg.Sender, sesv2.NewFromConfig(awsCfg), cfg.Logger), nil
}

// NewWithClient creates a Provider with a custom client, used for testing.
func NewWithClient(sender string, client SendEmailAPI, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		sender: sender,
		client: client,
		logger: logger,
	}
}

// Send delivers an email message via AWS SES v2. Mail with attachments is
// sent as a raw MIME message, everything else with the simple format.
func (s *Provider) Send(ctx context.Context, msg *email.Email) error {
	from := msg.From
	if s.sender != "" {
		from = s.sender
	}

	var input *sesv2.SendEmailInput
	if len(msg.Attachments) > 0 {
		raw, err := buildRawMessage(from, msg)
		if err != nil {
			return &provider.DispatchError{Provider: s.Name(), Err: fmt.Errorf("failed to build raw message: %w", err)}
		}
		input = &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(from),
			Destination:      destination(msg),
			Content: &types.EmailContent{
				Raw: &types.RawMessage{Data: raw},
			},
		}
	} else {
		input = buildSimpleInput(from, msg)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return &provider.DispatchError{Provider: s.Name(), Err: err}
	}

	if out != nil {
		s.logger.Debug("ses accepted mail", zap.String("message_id", aws.ToString(out.MessageId)))
	}
	return nil
}

// Name returns the provider name.
func (s *Provider) Name() string {
	return "ses"
}

func destination(msg *email.Email) *types.Destination {
	return &types.Destination{
		ToAddresses:  msg.To,
		CcAddresses:  msg.Cc,
		BccAddresses: msg.Bcc,
	}
}

// buildSimpleInput creates a SES SendEmailInput for emails without attachments.
func buildSimpleInput(from string, msg *email.Email) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      destination(msg),
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(msg.Body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
}

// buildRawMessage encodes a MIME message carrying the HTML body and the
// attachments. Bcc recipients never appear in the headers.
func buildRawMessage(from string, msg *email.Email) ([]byte, error) {
	builder := enmime.Builder().
		From("", from).
		ToAddrs(addressList(msg.To)).
		CCAddrs(addressList(msg.Cc)).
		BCCAddrs(addressList(msg.Bcc)).
		Subject(msg.Subject).
		HTML([]byte(msg.Body))

	for _, att := range msg.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode attachment %s: %w", att.Filename, err)
		}
		builder = builder.AddAttachment(data, att.Type, att.Filename)
	}

	root, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), nil
}

func addressList(addrs []string) []mail.Address {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, mail.Address{Address: a})
	}
	return out
}
