package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/config"
)

func failedRun() JobAlert {
	return JobAlert{
		JobName:    "cleanup_expired",
		TotalTasks: 2,
		Failures:   []TaskFailure{{Task: "sessions", Error: "database is locked"}},
		Duration:   1500 * time.Millisecond,
		Timestamp:  time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestJobFailed_GenericThreshold(t *testing.T) {
	var (
		calls int32
		body  map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	}))
	defer srv.Close()

	a := NewAlerter(config.AlertConfig{WebhookURL: srv.URL, MinFailures: 2}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, a.JobFailed(ctx, failedRun()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "first failure is below threshold")

	require.NoError(t, a.JobFailed(ctx, failedRun()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "scheduled_job_failure", body["alert_type"])
	assert.Equal(t, "cleanup_expired", body["job_name"])
	assert.Equal(t, float64(2), body["consecutive"])
	assert.Equal(t, float64(1500), body["duration_ms"])

	a.JobSucceeded("cleanup_expired")
	require.NoError(t, a.JobFailed(ctx, failedRun()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "success resets the streak")
}

func TestJobFailed_Formats(t *testing.T) {
	tests := []struct {
		kind string
		key  string
	}{
		{"slack", "blocks"},
		{"discord", "embeds"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			var body map[string]interface{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			}))
			defer srv.Close()

			a := NewAlerter(config.AlertConfig{WebhookURL: srv.URL, WebhookType: tt.kind}, zap.NewNop())
			require.NoError(t, a.JobFailed(context.Background(), failedRun()))
			assert.Contains(t, body, tt.key)
		})
	}
}

func TestJobFailed_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAlerter(config.AlertConfig{WebhookURL: srv.URL}, zap.NewNop())
	err := a.JobFailed(context.Background(), failedRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewAlerter_Detect(t *testing.T) {
	assert.Equal(t, "slack", NewAlerter(config.AlertConfig{WebhookURL: "https://hooks.slack.com/services/x"}, zap.NewNop()).kind)
	assert.Equal(t, "discord", NewAlerter(config.AlertConfig{WebhookURL: "https://discord.com/api/webhooks/x"}, zap.NewNop()).kind)
	assert.Equal(t, "generic", NewAlerter(config.AlertConfig{WebhookURL: "https://example.com/hook"}, zap.NewNop()).kind)

	disabled := NewAlerter(config.AlertConfig{}, zap.NewNop())
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.JobFailed(context.Background(), failedRun()))
}
