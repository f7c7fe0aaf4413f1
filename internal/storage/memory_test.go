package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func ptr(v float64) *float64 { return &v }

func sampleSlabs() []TariffSlab {
	return []TariffSlab{
		{ConsumerType: "general", MinUnits: 101, MaxUnits: ptr(200), Rate: decimal.RequireFromString("22.95"), IsActive: true},
		{ConsumerType: "general", MinUnits: 1, MaxUnits: ptr(100), Rate: decimal.RequireFromString("16.48"), IsActive: true},
		{ConsumerType: "lifeline", MinUnits: 1, MaxUnits: ptr(50), Rate: decimal.RequireFromString("3.95"), IsActive: true},
		{ConsumerType: "general", MinUnits: 201, Rate: decimal.RequireFromString("27.14"), IsActive: false},
	}
}

func TestNewMemoryWithSlabs_PreloadsActiveSlabsInOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryWithSlabs(sampleSlabs())
	defer m.Close()

	list, err := m.ListTariffSlabs(ctx)
	if err != nil {
		t.Fatalf("ListTariffSlabs failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 active slabs, got %d", len(list))
	}
	if list[0].ConsumerType != "general" || list[0].MinUnits != 1 {
		t.Fatalf("unexpected first slab: %+v", list[0])
	}
	if list[2].ConsumerType != "lifeline" {
		t.Fatalf("expected lifeline last, got %+v", list[2])
	}
	for _, s := range list {
		if s.ID == 0 {
			t.Fatalf("slab without id: %+v", s)
		}
	}
}

func TestMemory_UpdateTariffRate(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryWithSlabs(sampleSlabs())

	list, _ := m.ListTariffSlabs(ctx)
	id := list[0].ID
	if err := m.UpdateTariffRate(ctx, id, decimal.RequireFromString("17.00")); err != nil {
		t.Fatalf("UpdateTariffRate failed: %v", err)
	}
	got, err := m.GetTariffSlab(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("GetTariffSlab: %v %v", got, err)
	}
	if !got.Rate.Equal(decimal.RequireFromString("17")) {
		t.Fatalf("rate not updated: %s", got.Rate)
	}

	missing, err := m.GetTariffSlab(ctx, 999)
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing slab, got %v %v", missing, err)
	}
}

func TestMemory_CreateUserRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	u := User{ID: "u1", Email: "a@example.com", Role: "user", IsActive: true}
	if err := m.CreateUser(ctx, u, Profile{HouseholdSize: 3}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	err := m.CreateUser(ctx, User{ID: "u2", Email: "a@example.com"}, Profile{})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	p, err := m.GetProfile(ctx, "u1")
	if err != nil || p == nil {
		t.Fatalf("GetProfile: %v %v", p, err)
	}
	if p.UserID != "u1" || p.HouseholdSize != 3 {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestMemory_ExpiredSessionsAndResetTokens(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	_ = m.CreateSession(ctx, Session{ID: "s1", UserID: "u1", TokenHash: "live", ExpiresAt: now.Add(time.Hour)})
	_ = m.CreateSession(ctx, Session{ID: "s2", UserID: "u1", TokenHash: "dead", ExpiresAt: now.Add(-time.Hour)})

	n, err := m.DeleteExpiredSessions(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpiredSessions = %d, %v", n, err)
	}
	if s, _ := m.GetSessionByHash(ctx, "live"); s == nil {
		t.Fatalf("live session was removed")
	}

	_ = m.CreateResetToken(ctx, PasswordResetToken{ID: "r1", UserID: "u1", TokenHash: "h1", ExpiresAt: now.Add(time.Hour)})
	_ = m.CreateResetToken(ctx, PasswordResetToken{ID: "r2", UserID: "u2", TokenHash: "h2", ExpiresAt: now.Add(time.Hour)})
	if err := m.InvalidateResetTokens(ctx, "u1"); err != nil {
		t.Fatalf("InvalidateResetTokens: %v", err)
	}
	r1, _ := m.GetResetTokenByHash(ctx, "h1")
	r2, _ := m.GetResetTokenByHash(ctx, "h2")
	if !r1.Used || r2.Used {
		t.Fatalf("invalidate touched wrong tokens: r1=%v r2=%v", r1.Used, r2.Used)
	}
	n, _ = m.DeleteStaleResetTokens(ctx, now)
	if n != 1 {
		t.Fatalf("expected 1 stale token removed, got %d", n)
	}
}

func TestMemory_ListPredictionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Now()
	for i := 0; i < 5; i++ {
		_ = m.SavePrediction(ctx, Prediction{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	_ = m.SavePrediction(ctx, Prediction{ID: "x", UserID: "u2", CreatedAt: base})

	list, err := m.ListPredictions(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("ListPredictions: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(list))
	}
	if list[0].ID != "e" || list[2].ID != "c" {
		t.Fatalf("unexpected order: %s %s %s", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestMemory_CasbinRules(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.AddCasbinRule(ctx, CasbinRule{PType: "p", V0: "admin", V1: "*", V2: "*"})
	_ = m.AddCasbinRule(ctx, CasbinRule{PType: "g", V0: "u1", V1: "user"})

	if err := m.RemoveCasbinRule(ctx, CasbinRule{PType: "g", V0: "u1", V1: "user"}); err != nil {
		t.Fatalf("RemoveCasbinRule: %v", err)
	}
	rules, _ := m.LoadCasbinRules(ctx)
	if len(rules) != 1 || rules[0].V0 != "admin" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}
