// Package dispatch runs the poll-transform-send loop.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krscode/mail-monit/internal/calendar"
	"github.com/krscode/mail-monit/internal/email"
	"github.com/krscode/mail-monit/internal/mail"
	"github.com/krscode/mail-monit/internal/metrics"
	"github.com/krscode/mail-monit/internal/provider"
)

// Fetcher retrieves the mails waiting to be sent.
type Fetcher interface {
	FetchSendable(ctx context.Context) ([]mail.UpstreamMail, error)
}

// Transformer converts one upstream mail into an outbound email.
type Transformer interface {
	Transform(m mail.UpstreamMail) (*email.Email, error)
}

// CycleReport summarises one dispatch cycle.
type CycleReport struct {
	ID      string
	Fetched int
	Sent    int
	Failed  int
}

// Dispatcher fetches sendable mails and sends them one at a time.
type Dispatcher struct {
	fetcher     Fetcher
	transformer Transformer
	provider    provider.Provider
	logger      *zap.Logger
}

// New creates a Dispatcher.
func New(f Fetcher, t Transformer, p provider.Provider, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		fetcher:     f,
		transformer: t,
		provider:    p,
		logger:      logger,
	}
}

// RunCycle fetches the pending mails and sends each in order. A fetch
// failure aborts the cycle and is returned. A mail that fails to transform
// or send is logged and counted; the remaining mails are still processed.
// Cancelling ctx stops the cycle before the next mail and returns ctx.Err().
func (d *Dispatcher) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{ID: uuid.NewString()}
	log := d.logger.With(zap.String("cycle_id", report.ID), zap.String("provider", d.provider.Name()))

	mails, err := d.fetcher.FetchSendable(ctx)
	if err != nil {
		metrics.Cycles.WithLabelValues("fetch_error").Inc()
		log.Error("failed to fetch sendable mails", zap.Error(err))
		return report, err
	}

	report.Fetched = len(mails)
	metrics.MailsFetched.Add(float64(len(mails)))
	log.Info("fetched sendable mails", zap.Int("count", len(mails)))

	for i, m := range mails {
		if err := ctx.Err(); err != nil {
			metrics.Cycles.WithLabelValues("cancelled").Inc()
			log.Warn("dispatch cycle cancelled",
				zap.Int("sent", report.Sent),
				zap.Int("failed", report.Failed),
				zap.Int("skipped", len(mails)-i),
			)
			return report, err
		}

		if err := d.process(ctx, m); err != nil {
			report.Failed++
			metrics.MailsFailed.WithLabelValues(d.provider.Name(), failureReason(err)).Inc()
			log.Error("mail not sent",
				zap.String("mail_id", m.ID),
				zap.String("mail_type", m.Type.String()),
				zap.Error(err),
			)
			continue
		}

		report.Sent++
		metrics.MailsSent.WithLabelValues(d.provider.Name(), m.Type.String()).Inc()
		log.Info("mail sent",
			zap.String("mail_id", m.ID),
			zap.String("mail_type", m.Type.String()),
		)
	}

	metrics.Cycles.WithLabelValues("ok").Inc()
	log.Info("dispatch cycle finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// Run executes a cycle immediately and then once per interval until ctx is
// cancelled. Cycle errors are logged and do not stop the loop.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// Errors are already logged by RunCycle.
		_, _ = d.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, m mail.UpstreamMail) error {
	out, err := d.transformer.Transform(m)
	if err != nil {
		return err
	}
	return d.provider.Send(ctx, out)
}

func failureReason(err error) string {
	var (
		malformed   *calendar.MalformedEventError
		ioErr       *calendar.IOError
		dispatchErr *provider.DispatchError
	)
	switch {
	case errors.As(err, &malformed):
		return metrics.ReasonMalformedEvent
	case errors.As(err, &ioErr):
		return metrics.ReasonCalendarIO
	case errors.As(err, &dispatchErr):
		return metrics.ReasonDispatch
	default:
		return metrics.ReasonOther
	}
}
