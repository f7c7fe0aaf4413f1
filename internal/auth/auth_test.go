package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bher20/billoptimizer/internal/storage"
	"github.com/bher20/billoptimizer/internal/tariff"
)

type sentMail struct {
	to, name, link string
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	f.sent = append(f.sent, sentMail{to, name, link})
	return nil
}

func (f *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	u, err := url.Parse(f.sent[len(f.sent)-1].link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newTestService(t *testing.T) (*Service, *storage.MemoryStorage, *fakeMailer) {
	t.Helper()
	st := storage.NewMemory()
	mailer := &fakeMailer{}
	svc, err := NewService(st, mailer, Options{
		ResetURL: "https://bills.example.com/reset",
		HashCost: bcrypt.MinCost,
	}, zap.NewNop())
	require.NoError(t, err)
	return svc, st, mailer
}

func register(t *testing.T, svc *Service, email string) *storage.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Email:         email,
		Password:      "secret1",
		FullName:      "Ayesha Khan",
		HouseholdSize: 5,
		Region:        "Karachi",
		ConsumerType:  "protected",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	u := register(t, svc, " Ayesha@Example.com ")
	assert.Equal(t, "ayesha@example.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	p, err := st.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, string(tariff.Protected), p.ConsumerType)
	assert.Equal(t, 5, p.HouseholdSize)

	_, err = svc.Register(ctx, RegisterInput{Email: "ayesha@example.com", Password: "another", FullName: "X"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	sess, err := svc.Login(ctx, "AYESHA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", sess.TokenType)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), sess.ExpiresAt, time.Minute)

	stored, err := st.GetSessionByHash(ctx, hashToken(sess.Token))
	require.NoError(t, err)
	require.NotNil(t, stored, "session is stored by token hash")

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, "ayesha@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"bad email", RegisterInput{Email: "nope", Password: "secret1", FullName: "A"}},
		{"short password", RegisterInput{Email: "a@b.c", Password: "12345", FullName: "A"}},
		{"missing name", RegisterInput{Email: "a@b.c", Password: "secret1"}},
		{"household too large", RegisterInput{Email: "a@b.c", Password: "secret1", FullName: "A", HouseholdSize: 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, tariff.ErrInvalidInput)
		})
	}

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "secret1", FullName: "A", ConsumerType: "Industrial"})
	assert.ErrorIs(t, err, tariff.ErrInvalidCategory)
}

func TestAuthenticate_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	register(t, svc, "a@example.com")

	sess, err := svc.Login(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService(t)
	register(t, svc, "a@example.com")

	require.NoError(t, svc.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Empty(t, mailer.sent, "unknown emails get no mail")

	require.NoError(t, svc.RequestPasswordReset(ctx, "a@example.com"))
	first := mailer.lastToken(t)
	assert.Equal(t, "a@example.com", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].link, "https://bills.example.com/reset?token=")

	require.NoError(t, svc.RequestPasswordReset(ctx, "a@example.com"))
	second := mailer.lastToken(t)

	assert.ErrorIs(t, svc.ResetPassword(ctx, first, "newsecret"), ErrInvalidToken, "older tokens are invalidated")
	assert.ErrorIs(t, svc.ResetPassword(ctx, second, "123"), ErrWeakPassword)

	require.NoError(t, svc.ResetPassword(ctx, second, "newsecret"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, second, "newsecret2"), ErrInvalidToken, "tokens are single use")

	_, err := svc.Login(ctx, "a@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "a@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestPasswordReset_Expired(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService(t)
	register(t, svc, "a@example.com")

	require.NoError(t, svc.RequestPasswordReset(ctx, "a@example.com"))
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	assert.ErrorIs(t, svc.ResetPassword(ctx, mailer.lastToken(t), "newsecret"), ErrInvalidToken)
}

func TestProfileUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	u := register(t, svc, "a@example.com")

	size := 3
	region := "Lahore"
	general := "GENERAL"
	name := "Ayesha K."
	acct, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{
		FullName:      &name,
		HouseholdSize: &size,
		Region:        &region,
		ConsumerType:  &general,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ayesha K.", acct.FullName)
	assert.Equal(t, 3, acct.Profile.HouseholdSize)
	assert.Equal(t, "General", acct.Profile.ConsumerType)

	again, err := svc.Account(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lahore", again.Profile.Region)
	assert.Equal(t, "Ayesha K.", again.FullName)

	bad := 0
	_, err = svc.UpdateProfile(ctx, u.ID, ProfileUpdate{HouseholdSize: &bad})
	assert.ErrorIs(t, err, tariff.ErrInvalidInput)
}

func TestRoles(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)
	u := register(t, svc, "user@example.com")

	ok, err := svc.Enforce(u, "profile", "write")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Enforce(u, "tariffs", "write")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "adminpass"))
	admin, err := st.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin())
	ok, err = svc.Enforce(admin, "tariffs", "write")
	require.NoError(t, err)
	assert.True(t, ok)

	// Policies survive a restart through the storage adapter.
	restarted, err := NewService(st, nil, Options{HashCost: bcrypt.MinCost}, zap.NewNop())
	require.NoError(t, err)
	ok, err = restarted.Enforce(admin, "tariffs", "write")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, restarted.EnsureAdmin(ctx, "user@example.com", "ignored"))
	ok, err = restarted.Enforce(u, "tariffs", "write")
	require.NoError(t, err)
	assert.True(t, ok, "existing account promoted")
}

func TestAdapter_RemoveFilteredPolicy(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	a := NewAdapter(st)
	require.NoError(t, a.AddPolicy("g", "g", []string{"u1", "user"}))
	require.NoError(t, a.AddPolicy("g", "g", []string{"u2", "user"}))
	require.NoError(t, a.AddPolicy("g", "g", []string{"u1", "admin"}))

	require.NoError(t, a.RemoveFilteredPolicy("g", "g", 0, "u1"))
	rules, err := st.LoadCasbinRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "u2", rules[0].V0)
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	register(t, svc, "a@example.com")
	sess, err := svc.Login(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	protected := svc.Middleware(svc.RequirePermission("profile", "read", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFromContext(r.Context())
		_, _ = w.Write([]byte(u.Email))
	})))
	admin := svc.Middleware(svc.RequirePermission("tariffs", "write", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	tests := []struct {
		name    string
		handler http.Handler
		header  string
		want    int
	}{
		{"anonymous", protected, "", http.StatusUnauthorized},
		{"malformed", protected, "Token abc", http.StatusUnauthorized},
		{"unknown token", protected, "Bearer nope", http.StatusUnauthorized},
		{"valid", protected, "Bearer " + sess.Token, http.StatusOK},
		{"forbidden", admin, "Bearer " + sess.Token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "a@example.com", rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"status":"error"`)
			}
		})
	}
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"24h", 24 * time.Hour},
		{"90m", 90 * time.Minute},
	}
	for _, tt := range tests {
		got, err := ParseTTL(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	for _, bad := range []string{"", "0d", "-1h", "forever", "12/25/2026"} {
		_, err := ParseTTL(bad)
		assert.Error(t, err, bad)
	}
}
