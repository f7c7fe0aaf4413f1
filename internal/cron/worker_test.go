package cron

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/alerting"
	"github.com/bher20/billoptimizer/internal/config"
	"github.com/bher20/billoptimizer/internal/storage"
)

type lockedSessions struct {
	*storage.MemoryStorage
}

func (lockedSessions) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestRunJob_Cleanup(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	now := time.Now()

	require.NoError(t, st.CreateSession(ctx, storage.Session{ID: "old", TokenHash: "h1", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, st.CreateSession(ctx, storage.Session{ID: "live", TokenHash: "h2", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, st.CreateResetToken(ctx, storage.PasswordResetToken{ID: "used", TokenHash: "r1", ExpiresAt: now.Add(time.Hour), Used: true}))
	require.NoError(t, st.CreateResetToken(ctx, storage.PasswordResetToken{ID: "fresh", TokenHash: "r2", ExpiresAt: now.Add(time.Hour)}))

	w := NewWorker(st, nil, zap.NewNop())
	require.NoError(t, w.RunJob(ctx, CleanupJob(st, func() time.Time { return now })))

	s, err := st.GetSessionByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, s)
	s, err = st.GetSessionByHash(ctx, "h2")
	require.NoError(t, err)
	assert.NotNil(t, s)

	r, err := st.GetResetTokenByHash(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, r)
	r, err = st.GetResetTokenByHash(ctx, "r2")
	require.NoError(t, err)
	assert.NotNil(t, r)

	job, ok := st.ScheduledJob(CleanupJobName)
	require.True(t, ok)
	assert.True(t, job.LastSuccess)
	assert.Empty(t, job.LastError)
}

func TestRunJob_FailureAlerts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	ctx := context.Background()
	mem := storage.NewMemory()
	st := lockedSessions{mem}
	alerter := alerting.NewAlerter(config.AlertConfig{WebhookURL: srv.URL}, zap.NewNop())
	w := NewWorker(st, alerter, zap.NewNop())

	err := w.RunJob(ctx, CleanupJob(st, time.Now))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessions: database is locked")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	job, ok := mem.ScheduledJob(CleanupJobName)
	require.True(t, ok)
	assert.False(t, job.LastSuccess)
	assert.Contains(t, job.LastError, "database is locked")
}

func TestRun_InvalidSchedule(t *testing.T) {
	st := storage.NewMemory()
	w := NewWorker(st, nil, zap.NewNop())
	err := w.Run(context.Background(), "every tuesday", CleanupJob(st, time.Now))
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := storage.NewMemory()
	w := NewWorker(st, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, "@hourly", CleanupJob(st, time.Now)) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
