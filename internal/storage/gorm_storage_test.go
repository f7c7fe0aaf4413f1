package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func openSQLite(t *testing.T) *GormStorage {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "billoptimizer.db")
	st, err := NewGormStorage("sqlite", dsn)
	if err != nil {
		t.Fatalf("NewGormStorage: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return st
}

func TestGormStorage_TariffSlabs(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t)

	if err := st.ReplaceTariffSlabs(ctx, sampleSlabs()); err != nil {
		t.Fatalf("ReplaceTariffSlabs: %v", err)
	}
	list, err := st.ListTariffSlabs(ctx)
	if err != nil {
		t.Fatalf("ListTariffSlabs: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 active slabs, got %d", len(list))
	}

	id := list[0].ID
	if err := st.UpdateTariffRate(ctx, id, decimal.RequireFromString("18.25")); err != nil {
		t.Fatalf("UpdateTariffRate: %v", err)
	}
	got, err := st.GetTariffSlab(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("GetTariffSlab: %v %v", got, err)
	}
	if !got.Rate.Equal(decimal.RequireFromString("18.25")) {
		t.Fatalf("rate = %s", got.Rate)
	}

	// Replace wipes the previous rows.
	if err := st.ReplaceTariffSlabs(ctx, sampleSlabs()[:1]); err != nil {
		t.Fatalf("ReplaceTariffSlabs: %v", err)
	}
	list, _ = st.ListTariffSlabs(ctx)
	if len(list) != 1 {
		t.Fatalf("expected 1 slab after replace, got %d", len(list))
	}
}

func TestGormStorage_UsersAndSessions(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t)

	u := User{ID: "u1", Email: "a@example.com", Role: "user", IsActive: true, CreatedAt: time.Now()}
	if err := st.CreateUser(ctx, u, Profile{HouseholdSize: 4, Region: "north"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := st.CreateUser(ctx, User{ID: "u2", Email: "a@example.com"}, Profile{}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate email, got %v", err)
	}

	got, err := st.GetUserByEmail(ctx, "a@example.com")
	if err != nil || got == nil || got.ID != "u1" {
		t.Fatalf("GetUserByEmail: %+v %v", got, err)
	}
	p, err := st.GetProfile(ctx, "u1")
	if err != nil || p == nil || p.Region != "north" {
		t.Fatalf("GetProfile: %+v %v", p, err)
	}
	p.Region = "south"
	if err := st.SaveProfile(ctx, *p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	p, _ = st.GetProfile(ctx, "u1")
	if p.Region != "south" {
		t.Fatalf("profile not updated: %+v", p)
	}

	now := time.Now()
	_ = st.CreateSession(ctx, Session{ID: "s1", UserID: "u1", TokenHash: "live", ExpiresAt: now.Add(time.Hour)})
	_ = st.CreateSession(ctx, Session{ID: "s2", UserID: "u1", TokenHash: "dead", ExpiresAt: now.Add(-time.Hour)})
	n, err := st.DeleteExpiredSessions(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpiredSessions = %d, %v", n, err)
	}
	if s, _ := st.GetSessionByHash(ctx, "dead"); s != nil {
		t.Fatalf("expired session still present")
	}
	missing, err := st.GetUser(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil), got %v %v", missing, err)
	}
}

func TestGormStorage_ScheduledJobUpsert(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t)

	start := time.Now()
	if err := st.UpdateScheduledJob(ctx, "cleanup_expired", start, time.Second, false, "boom"); err != nil {
		t.Fatalf("UpdateScheduledJob: %v", err)
	}
	if err := st.UpdateScheduledJob(ctx, "cleanup_expired", start, 2*time.Second, true, ""); err != nil {
		t.Fatalf("UpdateScheduledJob upsert: %v", err)
	}
	var job ScheduledJob
	if err := st.db.First(&job, "name = ?", "cleanup_expired").Error; err != nil {
		t.Fatalf("read job: %v", err)
	}
	if !job.LastSuccess || job.LastDurationMs != 2000 {
		t.Fatalf("unexpected job row: %+v", job)
	}
}
