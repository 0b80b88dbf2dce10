// Package main is the entry point for the mail dispatcher.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krscode/mail-monit/internal/calendar"
	"github.com/krscode/mail-monit/internal/config"
	"github.com/krscode/mail-monit/internal/dispatch"
	"github.com/krscode/mail-monit/internal/logger"
	"github.com/krscode/mail-monit/internal/metrics"
	"github.com/krscode/mail-monit/internal/provider"
	"github.com/krscode/mail-monit/internal/provider/graph"
	"github.com/krscode/mail-monit/internal/provider/sendgrid"
	"github.com/krscode/mail-monit/internal/provider/ses"
	"github.com/krscode/mail-monit/internal/provider/stdout"
	"github.com/krscode/mail-monit/internal/transform"
	"github.com/krscode/mail-monit/internal/upstream"
)

type options struct {
	configPath string
	envFile    string
	// envFileSet is true when --env-file was given explicitly.
	envFileSet bool
	once       bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "mail-monit",
		Short:         "Deliver pending backend mails through an email provider",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.envFileSet = cmd.Flags().Changed("env-file")
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return run(ctx, opts)
		},
	}

	root.Flags().StringVar(&opts.configPath, "config", "", "path to YAML configuration file (optional)")
	root.Flags().StringVar(&opts.envFile, "env-file", ".env", "path to a .env file; a missing default file is ignored")
	root.Flags().BoolVar(&opts.once, "once", false, "run a single dispatch cycle and exit")

	return root
}

func run(ctx context.Context, opts *options) error {
	if err := config.LoadEnvFile(opts.envFile, !opts.envFileSet); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		return err
	}

	log, err := logger.New(cfg.Logging.Level)
	if log == nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log)
	if err != nil {
		log.Warn("invalid log level", zap.Error(err))
	}

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return err
	}

	if err := os.MkdirAll(cfg.Calendar.Dir, 0o755); err != nil {
		log.Error("failed to create events directory", zap.String("dir", cfg.Calendar.Dir), zap.Error(err))
		return fmt.Errorf("failed to create events directory: %w", err)
	}

	prov, err := selectProvider(ctx, cfg, log)
	if err != nil {
		log.Error("failed to set up provider", zap.Error(err))
		return err
	}

	fetcher := upstream.NewClient(upstream.Config{
		Endpoint: cfg.Upstream.Endpoint,
		Timeout:  cfg.Upstream.Timeout,
		Logger:   log,
	})
	builder := calendar.NewBuilder(cfg.Calendar.Dir,
		calendar.WithURL(cfg.Calendar.URL),
		calendar.WithLogger(log),
	)
	dispatcher := dispatch.New(fetcher, transform.New(builder), prov, log)

	if cfg.Metrics.Listen != "" {
		stopMetrics := serveMetrics(cfg.Metrics.Listen, log)
		defer stopMetrics()
	}

	log.Info("starting mail-monit",
		zap.String("endpoint", cfg.Upstream.Endpoint),
		zap.String("provider", prov.Name()),
		zap.String("events_dir", cfg.Calendar.Dir),
		zap.Duration("interval", cfg.Dispatch.Interval),
		zap.Bool("once", opts.once),
	)

	if opts.once {
		_, err := dispatcher.RunCycle(ctx)
		return err
	}

	if err := dispatcher.Run(ctx, cfg.Dispatch.Interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("mail-monit stopped")
	return nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// selectProvider builds the delivery backend named by the configuration,
// auto-detecting it from the configured credentials when none is named.
func selectProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) (provider.Provider, error) {
	name := cfg.ResolvedProvider()
	auto := cfg.Provider == ""

	switch name {
	case config.ProviderSendGrid:
		log.Info("using SendGrid provider", zap.String("host", cfg.SendGrid.Host), zap.Bool("auto_detected", auto))
		return sendgrid.New(sendgrid.Config{
			APIKey:  cfg.SendGrid.APIKey,
			Host:    cfg.SendGrid.Host,
			Timeout: cfg.SendGrid.Timeout,
			Logger:  log,
		}), nil

	case config.ProviderSES:
		log.Info("using AWS SES provider",
			zap.String("region", cfg.SES.Region),
			zap.String("sender", cfg.SES.Sender),
			zap.Bool("auto_detected", auto),
		)
		p, err := ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
			Logger:          log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case config.ProviderGraph:
		log.Info("using Microsoft Graph provider", zap.String("sender", cfg.Graph.Sender), zap.Bool("auto_detected", auto))
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
			Logger:       log,
		}), nil

	case config.ProviderStdout:
		log.Info("using stdout provider", zap.Bool("auto_detected", auto))
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// serveMetrics exposes the Prometheus handler on addr and returns a function
// that shuts the listener down.
func serveMetrics(addr string, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("serving metrics", zap.String("listen", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
	}
}
