package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/storage"
	"github.com/bher20/billoptimizer/internal/tariff"
)

// DefaultHistoryLimit caps History when no limit is given.
const DefaultHistoryLimit = 20

// Service runs predictions against the active tariff table and keeps a
// per-user history when storage is configured.
type Service struct {
	tariffs *tariff.Service
	store   storage.Storage
	log     *zap.Logger
	now     func() time.Time
}

func NewService(tariffs *tariff.Service, st storage.Storage, log *zap.Logger) *Service {
	return &Service{tariffs: tariffs, store: st, log: log.Named("predict"), now: time.Now}
}

// Predict validates req and estimates the bill. A non-empty userID stores the
// result in that user's history; a failed write is logged, not returned.
func (s *Service) Predict(ctx context.Context, req Request, userID string) (*Prediction, error) {
	in, err := req.Validate()
	if err != nil {
		return nil, err
	}
	t, err := s.tariffs.Table(ctx)
	if err != nil {
		return nil, err
	}
	p, err := Estimate(t, in)
	if err != nil {
		return nil, err
	}
	if userID != "" && s.store != nil {
		if err := s.save(ctx, userID, p); err != nil {
			s.log.Warn("predict: failed to store prediction", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, userID string, p *Prediction) error {
	raw, err := json.Marshal(p.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	return s.store.SavePrediction(ctx, storage.Prediction{
		ID:             uuid.NewString(),
		UserID:         userID,
		InputData:      raw,
		PredictedUnits: decimal.NewFromFloat(p.EstimatedUnits),
		PredictedBill:  decimal.NewFromInt(p.PredictedBill),
		CreatedAt:      s.now().UTC(),
	})
}

// History returns the user's most recent predictions, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]storage.Prediction, error) {
	if s.store == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = DefaultHistoryLimit
	}
	return s.store.ListPredictions(ctx, userID, limit)
}
