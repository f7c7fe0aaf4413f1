package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrConflict is returned when a unique key such as a user email is taken.
var ErrConflict = errors.New("storage: record already exists")

// Storage abstracts persistence for tariffs, accounts and prediction history.
// Getters return (nil, nil) when the record does not exist.
type Storage interface {
	// Tariff slabs
	ListTariffSlabs(ctx context.Context) ([]TariffSlab, error)
	GetTariffSlab(ctx context.Context, id uint) (*TariffSlab, error)
	ReplaceTariffSlabs(ctx context.Context, slabs []TariffSlab) error
	UpdateTariffRate(ctx context.Context, id uint, rate decimal.Decimal) error

	// Users and profiles
	CreateUser(ctx context.Context, user User, profile Profile) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user User) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	SaveProfile(ctx context.Context, profile Profile) error

	// Sessions
	CreateSession(ctx context.Context, s Session) error
	GetSessionByHash(ctx context.Context, hash string) (*Session, error)
	DeleteSessionByHash(ctx context.Context, hash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// Password reset tokens
	CreateResetToken(ctx context.Context, t PasswordResetToken) error
	GetResetTokenByHash(ctx context.Context, hash string) (*PasswordResetToken, error)
	InvalidateResetTokens(ctx context.Context, userID string) error
	DeleteStaleResetTokens(ctx context.Context, now time.Time) (int64, error)

	// Predictions
	SavePrediction(ctx context.Context, p Prediction) error
	ListPredictions(ctx context.Context, userID string, limit int) ([]Prediction, error)

	// Casbin rules
	LoadCasbinRules(ctx context.Context) ([]CasbinRule, error)
	AddCasbinRule(ctx context.Context, rule CasbinRule) error
	RemoveCasbinRule(ctx context.Context, rule CasbinRule) error

	// Scheduled jobs
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error

	Ping(ctx context.Context) error
	// Close releases any resources (no-op for in-memory).
	Close() error
}
