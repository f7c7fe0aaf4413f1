package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/bher20/billoptimizer/internal/storage"
	"github.com/bher20/billoptimizer/internal/tariff"
)

// Account is a user together with its profile.
type Account struct {
	*storage.User
	Profile *storage.Profile `json:"profile"`
}

// ProfileUpdate changes the non-nil fields of a profile.
type ProfileUpdate struct {
	FullName      *string `json:"full_name"`
	HouseholdSize *int    `json:"household_size"`
	Region        *string `json:"region"`
	ConsumerType  *string `json:"consumer_type"`
	Address       *string `json:"address"`
	PhoneNumber   *string `json:"phone_number"`
}

// Account returns the user and profile for userID.
func (s *Service) Account(ctx context.Context, userID string) (*Account, error) {
	u, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidToken
	}
	p, err := s.storage.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &storage.Profile{UserID: userID, HouseholdSize: 1, ConsumerType: string(tariff.General)}
	}
	return &Account{User: u, Profile: p}, nil
}

// UpdateProfile applies upd and returns the updated account.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*Account, error) {
	acct, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := acct.Profile

	if upd.HouseholdSize != nil {
		if *upd.HouseholdSize < 1 || *upd.HouseholdSize > 15 {
			return nil, fmt.Errorf("%w: household size should be between 1 and 15", tariff.ErrInvalidInput)
		}
		p.HouseholdSize = *upd.HouseholdSize
	}
	if upd.ConsumerType != nil {
		c, err := tariff.ParseCategory(*upd.ConsumerType)
		if err != nil {
			return nil, err
		}
		p.ConsumerType = string(c)
	}
	if upd.Region != nil {
		p.Region = strings.TrimSpace(*upd.Region)
	}
	if upd.Address != nil {
		p.Address = strings.TrimSpace(*upd.Address)
	}
	if upd.PhoneNumber != nil {
		p.PhoneNumber = strings.TrimSpace(*upd.PhoneNumber)
	}
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: full name is required", tariff.ErrInvalidInput)
		}
		acct.FullName = name
		acct.UpdatedAt = now
		if err := s.storage.UpdateUser(ctx, *acct.User); err != nil {
			return nil, err
		}
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.storage.SaveProfile(ctx, *p); err != nil {
		return nil, err
	}
	return acct, nil
}
