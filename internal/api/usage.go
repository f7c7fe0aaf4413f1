package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/bher20/billoptimizer/internal/appliance"
	"github.com/bher20/billoptimizer/internal/auth"
	"github.com/bher20/billoptimizer/internal/planner"
	"github.com/bher20/billoptimizer/internal/predict"
	"github.com/bher20/billoptimizer/internal/storage"
	"github.com/bher20/billoptimizer/internal/tariff"
)

func (s *Server) handleAppliances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"appliances": appliance.Catalog()})
}

type calculateUnitsRequest struct {
	Appliances map[string]float64 `json:"appliances" validate:"required"`
	Category   string             `json:"category"`
}

type unitsAnalysis struct {
	DailyUnits           float64         `json:"daily_units"`
	EstimatedMonthlyBill int64           `json:"estimated_monthly_bill"`
	Category             tariff.Category `json:"category"`
	ApplianceCount       int             `json:"appliance_count"`
}

type calculateUnitsResponse struct {
	*appliance.Consumption
	TotalUnits float64       `json:"total_units"`
	Analysis   unitsAnalysis `json:"analysis"`
	Status     string        `json:"status"`
}

// handleCalculateUnits estimates consumption from per-appliance hours and
// prices it on the active table, General unless a category is given.
func (s *Server) handleCalculateUnits(w http.ResponseWriter, r *http.Request) {
	var req calculateUnitsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := categoryOrGeneral(req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	est, err := appliance.EstimateFromHours(req.Appliances)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bill, err := s.tariffs.ComputeBill(r.Context(), est.MonthlyUnits, c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calculateUnitsResponse{
		Consumption: est,
		TotalUnits:  est.MonthlyUnits,
		Analysis: unitsAnalysis{
			DailyUnits:           est.DailyUnits,
			EstimatedMonthlyBill: bill,
			Category:             c,
			ApplianceCount:       len(req.Appliances),
		},
		Status: "success",
	})
}

func categoryOrGeneral(name string) (tariff.Category, error) {
	if name == "" {
		return tariff.General, nil
	}
	return tariff.ParseCategory(name)
}

type simulateRequest struct {
	Category   string            `json:"category" validate:"required"`
	Appliances []appliance.Usage `json:"appliances" validate:"dive"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := tariff.ParseCategory(req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.tariffs.Table(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sim, err := appliance.Simulate(t, c, req.Appliances)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

type planRequest struct {
	CurrentUnits *float64 `json:"current_units" validate:"required"`
	TargetUnits  *float64 `json:"target_units" validate:"required"`
	Category     string   `json:"category"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := categoryOrGeneral(req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.tariffs.Table(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	plan, err := planner.NewPlan(t, *req.CurrentUnits, *req.TargetUnits, c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, predict.Info())
}

func (s *Server) handleMeasures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"measures": planner.Measures()})
}

type savingsRequest struct {
	CurrentUnits *float64 `json:"current_units" validate:"required"`
	Measures     []string `json:"measures"`
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	var req savingsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	savings, err := planner.SavingsBreakdown(*req.CurrentUnits, req.Measures)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, savings)
}

type predictResponse struct {
	*predict.Prediction
	Status string `json:"status"`
}

// handlePredict serves anonymous and logged-in callers; only the latter get
// the result stored.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predict.Request
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	userID := ""
	if u, ok := auth.UserFromContext(r.Context()); ok {
		userID = u.ID
	}
	p, err := s.predict.Predict(r.Context(), req, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Prediction: p, Status: "success"})
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, errInvalidQuery("limit"))
			return
		}
		limit = n
	}
	list, err := s.predict.History(r.Context(), u.ID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := lo.Map(list, func(p storage.Prediction, _ int) predictionView {
		return predictionView{
			ID:             p.ID,
			Input:          json.RawMessage(p.InputData),
			PredictedUnits: p.PredictedUnits,
			PredictedBill:  p.PredictedBill,
			CreatedAt:      p.CreatedAt,
		}
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": views})
}

type predictionView struct {
	ID             string          `json:"id"`
	Input          json.RawMessage `json:"input_data"`
	PredictedUnits decimal.Decimal `json:"predicted_units"`
	PredictedBill  decimal.Decimal `json:"predicted_bill"`
	CreatedAt      time.Time       `json:"created_at"`
}
