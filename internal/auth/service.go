package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bher20/billoptimizer/internal/storage"
	"github.com/bher20/billoptimizer/internal/tariff"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	MinPasswordLength = 6
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = fmt.Errorf("%w: password must be at least %d characters", tariff.ErrInvalidInput, MinPasswordLength)
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

// Options tune token lifetimes and hashing.
type Options struct {
	SessionTTL time.Duration
	ResetTTL   time.Duration
	// ResetURL is the page that accepts ?token=.
	ResetURL string
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

type Service struct {
	storage  storage.Storage
	enforcer *casbin.SyncedEnforcer
	mailer   Mailer
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`

// NewService loads the RBAC policy from storage and seeds the default
// role permissions.
func NewService(s storage.Storage, mailer Mailer, opts Options, log *zap.Logger) (*Service, error) {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = 24 * time.Hour
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewSyncedEnforcer(m, NewAdapter(s))
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}

	// Admin can do everything; users manage their own profile and
	// predictions and can read tariffs.
	policies := [][]string{
		{RoleAdmin, "*", "*"},
		{RoleUser, "profile", "read"},
		{RoleUser, "profile", "write"},
		{RoleUser, "predictions", "read"},
		{RoleUser, "predictions", "write"},
		{RoleUser, "tariffs", "read"},
	}
	for _, p := range policies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("seed policy %v: %w", p, err)
		}
	}

	return &Service{
		storage:  s,
		enforcer: e,
		mailer:   mailer,
		opts:     opts,
		log:      log.Named("auth"),
		now:      time.Now,
	}, nil
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	HouseholdSize int    `json:"household_size"`
	Region        string `json:"region"`
	ConsumerType  string `json:"consumer_type"`
}

// Register creates a user with the "user" role and its profile.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*storage.User, error) {
	return s.createUser(ctx, in, RoleUser)
}

func (s *Service) createUser(ctx context.Context, in RegisterInput, role string) (*storage.User, error) {
	email := normalizeEmail(in.Email)
	if err := validateRegistration(email, in); err != nil {
		return nil, err
	}
	category := tariff.General
	if in.ConsumerType != "" {
		c, err := tariff.ParseCategory(in.ConsumerType)
		if err != nil {
			return nil, err
		}
		category = c
	}

	existing, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.HashCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := storage.User{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p := storage.Profile{
		UserID:        u.ID,
		HouseholdSize: in.HouseholdSize,
		Region:        in.Region,
		ConsumerType:  string(category),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.HouseholdSize == 0 {
		p.HouseholdSize = 1
	}

	if err := s.storage.CreateUser(ctx, u, p); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if _, err := s.enforcer.AddGroupingPolicy(u.ID, role); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}

	s.log.Info("auth: user registered", zap.String("user_id", u.ID), zap.String("role", role))
	return &u, nil
}

func validateRegistration(email string, in RegisterInput) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", tariff.ErrInvalidInput)
	}
	if len(in.Password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if strings.TrimSpace(in.FullName) == "" {
		return fmt.Errorf("%w: full name is required", tariff.ErrInvalidInput)
	}
	if in.HouseholdSize < 0 || in.HouseholdSize > 15 {
		return fmt.Errorf("%w: household size should be between 1 and 15", tariff.ErrInvalidInput)
	}
	return nil
}

// Session is the result of a successful login. Token is only ever returned
// here; storage keeps its hash.
type Session struct {
	Token     string        `json:"access_token"`
	TokenType string        `json:"token_type"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *storage.User `json:"user"`
}

// Login checks credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.storage.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	raw := newToken()
	now := s.now().UTC()
	sess := storage.Session{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		TokenHash: hashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	if err := s.storage.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return &Session{Token: raw, TokenType: "bearer", ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// Logout ends the session identified by token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.storage.DeleteSessionByHash(ctx, hashToken(token))
}

// Authenticate resolves a session token to its active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*storage.User, error) {
	hash := hashToken(token)
	sess, err := s.storage.GetSessionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(sess.ExpiresAt) {
		if err := s.storage.DeleteSessionByHash(ctx, hash); err != nil {
			s.log.Warn("auth: failed to delete expired session", zap.Error(err))
		}
		return nil, ErrInvalidToken
	}

	u, err := s.storage.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, ErrInvalidToken
	}
	return u, nil
}

// RequestPasswordReset mails a single-use reset link if email belongs to an
// active account. It reports success either way.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.storage.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if u == nil || !u.IsActive {
		s.log.Debug("auth: reset requested for unknown account")
		return nil
	}

	if err := s.storage.InvalidateResetTokens(ctx, u.ID); err != nil {
		return err
	}
	raw := newToken()
	now := s.now().UTC()
	t := storage.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		TokenHash: hashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.ResetTTL),
	}
	if err := s.storage.CreateResetToken(ctx, t); err != nil {
		return err
	}

	if s.mailer == nil {
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, u.Email, u.FullName, s.resetLink(raw)); err != nil {
		s.log.Error("auth: failed to send reset email", zap.String("user_id", u.ID), zap.Error(err))
	}
	return nil
}

func (s *Service) resetLink(token string) string {
	base := s.opts.ResetURL
	if base == "" {
		base = "http://localhost:8000/reset-password"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + url.Values{"token": {token}}.Encode()
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	t, err := s.storage.GetResetTokenByHash(ctx, hashToken(token))
	if err != nil {
		return err
	}
	if t == nil || t.Used || !s.now().Before(t.ExpiresAt) {
		return ErrInvalidToken
	}
	u, err := s.storage.GetUser(ctx, t.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.HashCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = s.now().UTC()
	if err := s.storage.UpdateUser(ctx, *u); err != nil {
		return err
	}
	if err := s.storage.InvalidateResetTokens(ctx, u.ID); err != nil {
		return err
	}
	s.log.Info("auth: password reset", zap.String("user_id", u.ID))
	return nil
}

// EnsureAdmin creates the configured admin account, or promotes an existing
// account with that email.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	u, err := s.storage.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if u == nil {
		_, err := s.createUser(ctx, RegisterInput{
			Email:    email,
			Password: password,
			FullName: "Administrator",
		}, RoleAdmin)
		return err
	}
	if u.Role != RoleAdmin {
		u.Role = RoleAdmin
		u.UpdatedAt = s.now().UTC()
		if err := s.storage.UpdateUser(ctx, *u); err != nil {
			return err
		}
	}
	if _, err := s.enforcer.AddGroupingPolicy(u.ID, RoleAdmin); err != nil {
		return fmt.Errorf("assign admin role: %w", err)
	}
	return nil
}

// Enforce reports whether u may perform act on obj.
func (s *Service) Enforce(u *storage.User, obj, act string) (bool, error) {
	return s.enforcer.Enforce(u.ID, obj, act)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newToken() string {
	return strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
