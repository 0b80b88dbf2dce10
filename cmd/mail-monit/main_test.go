package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/krscode/mail-monit/internal/config"
)

func TestSelectProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{name: "sendgrid", cfg: config.Config{SendGrid: config.SendGridConfig{APIKey: "k"}}, want: "sendgrid"},
		{
			name: "graph",
			cfg: config.Config{Provider: config.ProviderGraph, Graph: config.GraphConfig{
				TenantID: "t", ClientID: "c", ClientSecret: "s", Sender: "g@example.com",
			}},
			want: "msgraph",
		},
		{name: "stdout fallback", cfg: config.Config{}, want: "stdout"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := selectProvider(context.Background(), &tt.cfg, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestSelectProvider_Unknown(t *testing.T) {
	t.Parallel()

	_, err := selectProvider(context.Background(), &config.Config{Provider: "mailgun"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"getSendableMails": map[string]any{
				"mails": []map[string]any{{
					"correspondence": map[string]any{
						"id": "1", "fromEmail": "krs@krscode.com", "subject": "hello",
						"content": "<p>hi</p>", "mailType": "plain",
					},
					"receipients": []map[string]any{{"toType": "To", "toEmail": "a@example.com"}},
				}},
			}},
		})
	}))
	defer backend.Close()

	var sent atomic.Int32
	sg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sent.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer sg.Close()

	eventsDir := filepath.Join(t.TempDir(), "nested", "events")

	t.Setenv("GRAPHQL_URL", backend.URL)
	t.Setenv("PROVIDER", "sendgrid")
	t.Setenv("SENDGRID_API_KEY", "test-key")
	t.Setenv("SENDGRID_URL", sg.URL)
	t.Setenv("EVENT_DIR", eventsDir)
	t.Setenv("METRICS_LISTEN", "")
	t.Setenv("LOG_LEVEL", "error")

	err := run(context.Background(), &options{once: true})
	require.NoError(t, err)

	assert.Equal(t, int32(1), sent.Load())
	info, err := os.Stat(eventsDir)
	require.NoError(t, err, "events directory should be created at startup")
	assert.True(t, info.IsDir())
}

func TestRunOnce_FetchFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer backend.Close()

	t.Setenv("GRAPHQL_URL", backend.URL)
	t.Setenv("PROVIDER", "stdout")
	t.Setenv("EVENT_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	err := run(context.Background(), &options{once: true})
	assert.Error(t, err)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("PROVIDER", "ses")
	t.Setenv("SES_REGION", "")
	t.Setenv("SES_SENDER", "")
	t.Setenv("EVENT_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	err := run(context.Background(), &options{once: true})
	assert.ErrorContains(t, err, "SES_REGION")
}

func TestRootCommandFlags(t *testing.T) {
	t.Parallel()

	cmd := newRootCommand()
	for _, name := range []string{"config", "env-file", "once"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}
