package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormStorage struct {
	db     *gorm.DB
	driver string
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	switch driver {
	case "postgres":
		gormDialector = postgres.Open(dsn)
	case "sqlite":
		gormDialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db, driver: driver}, nil
}

// Driver returns the database driver name.
func (s *GormStorage) Driver() string { return s.driver }

// DBStats reports connection pool statistics.
func (s *GormStorage) DBStats() (sql.DBStats, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}

func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&TariffSlab{},
		&User{},
		&Profile{},
		&Session{},
		&PasswordResetToken{},
		&Prediction{},
		&CasbinRule{},
		&ScheduledJob{},
	)
}

// first runs query into dest and maps "not found" to (false, nil).
func first(q *gorm.DB, dest interface{}, conds ...interface{}) (bool, error) {
	err := q.First(dest, conds...).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Tariff slabs

func (s *GormStorage) ListTariffSlabs(ctx context.Context) ([]TariffSlab, error) {
	var slabs []TariffSlab
	result := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("consumer_type, min_units").
		Find(&slabs)
	return slabs, result.Error
}

func (s *GormStorage) GetTariffSlab(ctx context.Context, id uint) (*TariffSlab, error) {
	var slab TariffSlab
	ok, err := first(s.db.WithContext(ctx), &slab, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &slab, nil
}

func (s *GormStorage) ReplaceTariffSlabs(ctx context.Context, slabs []TariffSlab) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&TariffSlab{}).Error; err != nil {
			return err
		}
		if len(slabs) == 0 {
			return nil
		}
		return tx.Create(&slabs).Error
	})
}

func (s *GormStorage) UpdateTariffRate(ctx context.Context, id uint, rate decimal.Decimal) error {
	return s.db.WithContext(ctx).Model(&TariffSlab{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"rate": rate, "updated_at": time.Now()}).Error
}

// Users

func (s *GormStorage) CreateUser(ctx context.Context, user User, profile Profile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return ErrConflict
			}
			return err
		}
		profile.UserID = user.ID
		return tx.Create(&profile).Error
	})
}

func (s *GormStorage) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	ok, err := first(s.db.WithContext(ctx), &user, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *GormStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	ok, err := first(s.db.WithContext(ctx), &user, "email = ?", email)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *GormStorage) UpdateUser(ctx context.Context, user User) error {
	return s.db.WithContext(ctx).Save(&user).Error
}

func (s *GormStorage) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	ok, err := first(s.db.WithContext(ctx), &p, "user_id = ?", userID)
	if !ok {
		return nil, err
	}
	return &p, nil
}

func (s *GormStorage) SaveProfile(ctx context.Context, profile Profile) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&profile).Error
}

// Sessions

func (s *GormStorage) CreateSession(ctx context.Context, sess Session) error {
	return s.db.WithContext(ctx).Create(&sess).Error
}

func (s *GormStorage) GetSessionByHash(ctx context.Context, hash string) (*Session, error) {
	var sess Session
	ok, err := first(s.db.WithContext(ctx), &sess, "token_hash = ?", hash)
	if !ok {
		return nil, err
	}
	return &sess, nil
}

func (s *GormStorage) DeleteSessionByHash(ctx context.Context, hash string) error {
	return s.db.WithContext(ctx).Delete(&Session{}, "token_hash = ?", hash).Error
}

func (s *GormStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&Session{}, "expires_at < ?", now)
	return result.RowsAffected, result.Error
}

// Password reset tokens

func (s *GormStorage) CreateResetToken(ctx context.Context, t PasswordResetToken) error {
	return s.db.WithContext(ctx).Create(&t).Error
}

func (s *GormStorage) GetResetTokenByHash(ctx context.Context, hash string) (*PasswordResetToken, error) {
	var t PasswordResetToken
	ok, err := first(s.db.WithContext(ctx), &t, "token_hash = ?", hash)
	if !ok {
		return nil, err
	}
	return &t, nil
}

func (s *GormStorage) InvalidateResetTokens(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&PasswordResetToken{}).
		Where("user_id = ? AND used = ?", userID, false).
		Update("used", true).Error
}

func (s *GormStorage) DeleteStaleResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&PasswordResetToken{}, "used = ? OR expires_at < ?", true, now)
	return result.RowsAffected, result.Error
}

// Predictions

func (s *GormStorage) SavePrediction(ctx context.Context, p Prediction) error {
	return s.db.WithContext(ctx).Create(&p).Error
}

func (s *GormStorage) ListPredictions(ctx context.Context, userID string, limit int) ([]Prediction, error) {
	var out []Prediction
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}

// Casbin Rules

func (s *GormStorage) LoadCasbinRules(ctx context.Context) ([]CasbinRule, error) {
	var rules []CasbinRule
	result := s.db.WithContext(ctx).Find(&rules)
	return rules, result.Error
}

func (s *GormStorage) AddCasbinRule(ctx context.Context, rule CasbinRule) error {
	return s.db.WithContext(ctx).Create(&rule).Error
}

func (s *GormStorage) RemoveCasbinRule(ctx context.Context, rule CasbinRule) error {
	return s.db.WithContext(ctx).Where(&rule).Delete(&CasbinRule{}).Error
}

// Close & Ping

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Scheduled Jobs

func (s *GormStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	job := ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    success,
		LastError:      errMsg,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&job).Error
}
