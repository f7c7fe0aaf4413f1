package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu          sync.RWMutex
	slabs       map[uint]TariffSlab
	nextSlabID  uint
	users       map[string]User
	profiles    map[string]Profile
	sessions    map[string]Session
	resets      map[string]PasswordResetToken
	predictions []Prediction
	rules       []CasbinRule
	jobs        map[string]ScheduledJob
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		slabs:    make(map[uint]TariffSlab),
		users:    make(map[string]User),
		profiles: make(map[string]Profile),
		sessions: make(map[string]Session),
		resets:   make(map[string]PasswordResetToken),
		jobs:     make(map[string]ScheduledJob),
	}
}

// NewMemoryWithSlabs returns a MemoryStorage preloaded with the given tariff
// slabs. Conversion from tariff tables is done by callers to keep this
// package free of domain imports.
func NewMemoryWithSlabs(list []TariffSlab) *MemoryStorage {
	m := NewMemory()
	_ = m.ReplaceTariffSlabs(context.Background(), list)
	return m
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

// Tariff slabs

func (m *MemoryStorage) ListTariffSlabs(ctx context.Context) ([]TariffSlab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TariffSlab, 0, len(m.slabs))
	for _, s := range m.slabs {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConsumerType != out[j].ConsumerType {
			return out[i].ConsumerType < out[j].ConsumerType
		}
		return out[i].MinUnits < out[j].MinUnits
	})
	return out, nil
}

func (m *MemoryStorage) GetTariffSlab(ctx context.Context, id uint) (*TariffSlab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slabs[id]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

func (m *MemoryStorage) ReplaceTariffSlabs(ctx context.Context, slabs []TariffSlab) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slabs = make(map[uint]TariffSlab, len(slabs))
	now := time.Now()
	for _, s := range slabs {
		m.nextSlabID++
		s.ID = m.nextSlabID
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
		m.slabs[s.ID] = s
	}
	return nil
}

func (m *MemoryStorage) UpdateTariffRate(ctx context.Context, id uint, rate decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slabs[id]
	if !ok {
		return nil
	}
	s.Rate = rate
	s.UpdatedAt = time.Now()
	m.slabs[id] = s
	return nil
}

// Users

func (m *MemoryStorage) CreateUser(ctx context.Context, user User, profile Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrConflict
		}
	}
	m.users[user.ID] = user
	profile.UserID = user.ID
	m.profiles[user.ID] = profile
	return nil
}

func (m *MemoryStorage) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}

func (m *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) UpdateUser(ctx context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MemoryStorage) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStorage) SaveProfile(ctx context.Context, profile Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.UserID] = profile
	return nil
}

// Sessions

func (m *MemoryStorage) CreateSession(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.TokenHash] = s
	return nil
}

func (m *MemoryStorage) GetSessionByHash(ctx context.Context, hash string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[hash]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

func (m *MemoryStorage) DeleteSessionByHash(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, hash)
	return nil
}

func (m *MemoryStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

// Password reset tokens

func (m *MemoryStorage) CreateResetToken(ctx context.Context, t PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[t.TokenHash] = t
	return nil
}

func (m *MemoryStorage) GetResetTokenByHash(ctx context.Context, hash string) (*PasswordResetToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.resets[hash]
	if !ok {
		return nil, nil
	}
	cp := t
	return &cp, nil
}

func (m *MemoryStorage) InvalidateResetTokens(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.resets {
		if t.UserID == userID && !t.Used {
			t.Used = true
			m.resets[k] = t
		}
	}
	return nil
}

func (m *MemoryStorage) DeleteStaleResetTokens(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.resets {
		if t.Used || t.ExpiresAt.Before(now) {
			delete(m.resets, k)
			n++
		}
	}
	return n, nil
}

// Predictions

func (m *MemoryStorage) SavePrediction(ctx context.Context, p Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = append(m.predictions, p)
	return nil
}

func (m *MemoryStorage) ListPredictions(ctx context.Context, userID string, limit int) ([]Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Prediction
	for _, p := range m.predictions {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Casbin rules

func (m *MemoryStorage) LoadCasbinRules(ctx context.Context) ([]CasbinRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CasbinRule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

func (m *MemoryStorage) AddCasbinRule(ctx context.Context, rule CasbinRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule.ID = uint(len(m.rules) + 1)
	m.rules = append(m.rules, rule)
	return nil
}

func (m *MemoryStorage) RemoveCasbinRule(ctx context.Context, rule CasbinRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rules[:0]
	for _, r := range m.rules {
		if r.PType == rule.PType && r.V0 == rule.V0 && r.V1 == rule.V1 &&
			r.V2 == rule.V2 && r.V3 == rule.V3 && r.V4 == rule.V4 && r.V5 == rule.V5 {
			continue
		}
		kept = append(kept, r)
	}
	m.rules = kept
	return nil
}

// Scheduled jobs

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[name] = ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    success,
		LastError:      errMsg,
	}
	return nil
}

// ScheduledJob returns the last recorded run of the named job.
func (m *MemoryStorage) ScheduledJob(name string) (ScheduledJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[name]
	return j, ok
}
