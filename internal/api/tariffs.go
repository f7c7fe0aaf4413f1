package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bher20/billoptimizer/internal/tariff"
)

type billRequest struct {
	Units    *float64 `json:"units" validate:"required"`
	Category string   `json:"category" validate:"required"`
}

type billResponse struct {
	*tariff.Bill
	Slab tariff.Slab `json:"slab"`
}

// handleTariffs serves the tariff table with tips and worked examples.
func (s *Server) handleTariffs(w http.ResponseWriter, r *http.Request) {
	info, err := s.tariffs.Info(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondBill(w, r, *req.Units, req.Category)
}

func (s *Server) handleBillQuery(w http.ResponseWriter, r *http.Request) {
	units, err := queryFloat(r, "units")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondBill(w, r, units, r.URL.Query().Get("category"))
}

func (s *Server) respondBill(w http.ResponseWriter, r *http.Request, units float64, category string) {
	c, err := tariff.ParseCategory(category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bill, err := s.tariffs.Breakdown(r.Context(), units, c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.tariffs.Table(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	slab, err := t.SlabFor(units, c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, billResponse{Bill: bill, Slab: slab})
}

func (s *Server) handleAdminSlabs(w http.ResponseWriter, r *http.Request) {
	slabs, err := s.tariffs.ListSlabs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slabs": slabs})
}

type rateUpdateRequest struct {
	SlabID uint             `json:"slab_id" validate:"required"`
	Rate   *decimal.Decimal `json:"rate" validate:"required"`
}

func (s *Server) handleAdminUpdateRate(w http.ResponseWriter, r *http.Request) {
	var req rateUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	slab, err := s.tariffs.UpdateRate(r.Context(), req.SlabID, *req.Rate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Tariff rate updated",
		"slab":    slab,
	})
}
