package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// TariffSlab is one persisted band of a consumer category's schedule.
// MaxUnits is nil for the final, unbounded band.
type TariffSlab struct {
	ID            uint            `json:"id" gorm:"primaryKey;column:id"`
	ConsumerType  string          `json:"consumer_type" gorm:"column:consumer_type;index"`
	MinUnits      float64         `json:"min_units" gorm:"column:min_units"`
	MaxUnits      *float64        `json:"max_units" gorm:"column:max_units"`
	Rate          decimal.Decimal `json:"rate" gorm:"column:rate;type:decimal(10,2)"`
	Description   string          `json:"description" gorm:"column:description"`
	IsActive      bool            `json:"is_active" gorm:"column:is_active"`
	EffectiveDate time.Time       `json:"effective_date" gorm:"column:effective_date"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

// User represents a registered account.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;column:id"`
	Email        string    `json:"email" gorm:"uniqueIndex;column:email"`
	FullName     string    `json:"full_name" gorm:"column:full_name"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         string    `json:"role" gorm:"column:role"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == "admin" }

// Profile holds household details used to prefill estimates.
type Profile struct {
	UserID        string    `json:"user_id" gorm:"primaryKey;column:user_id"`
	HouseholdSize int       `json:"household_size" gorm:"column:household_size"`
	Region        string    `json:"region" gorm:"column:region"`
	ConsumerType  string    `json:"consumer_type" gorm:"column:consumer_type"`
	Address       string    `json:"address,omitempty" gorm:"column:address"`
	PhoneNumber   string    `json:"phone_number,omitempty" gorm:"column:phone_number"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Session is a login session. Only the SHA-256 of the bearer token is kept.
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	UserID    string    `json:"user_id" gorm:"column:user_id;index"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;column:token_hash"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at;index"`
}

// PasswordResetToken is a single-use password reset grant.
type PasswordResetToken struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	UserID    string    `json:"user_id" gorm:"column:user_id;index"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;column:token_hash"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at"`
	Used      bool      `json:"used" gorm:"column:used"`
}

// Prediction is a stored bill estimate for a user.
type Prediction struct {
	ID             string          `json:"id" gorm:"primaryKey;column:id"`
	UserID         string          `json:"user_id" gorm:"column:user_id;index"`
	InputData      []byte          `json:"input_data" gorm:"column:input_data"`
	PredictedUnits decimal.Decimal `json:"predicted_units" gorm:"column:predicted_units;type:decimal(10,2)"`
	PredictedBill  decimal.Decimal `json:"predicted_bill" gorm:"column:predicted_bill;type:decimal(10,2)"`
	CreatedAt      time.Time       `json:"created_at" gorm:"column:created_at;index"`
}

// CasbinRule represents a policy rule for RBAC.
type CasbinRule struct {
	ID    uint   `gorm:"primaryKey"`
	PType string `json:"ptype" gorm:"column:ptype"`
	V0    string `json:"v0" gorm:"column:v0"`
	V1    string `json:"v1" gorm:"column:v1"`
	V2    string `json:"v2" gorm:"column:v2"`
	V3    string `json:"v3" gorm:"column:v3"`
	V4    string `json:"v4" gorm:"column:v4"`
	V5    string `json:"v5" gorm:"column:v5"`
}

// ScheduledJob records the outcome of the last run of a background job.
type ScheduledJob struct {
	Name           string    `json:"name" gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `json:"last_run_at" gorm:"column:last_run_at"`
	LastDurationMs int64     `json:"last_duration_ms" gorm:"column:last_duration_ms"`
	LastSuccess    bool      `json:"last_success" gorm:"column:last_success"`
	LastError      string    `json:"last_error" gorm:"column:last_error"`
}
