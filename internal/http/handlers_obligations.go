package http

import (
	"net/http"

	"ledger/internal/core"

	"github.com/go-chi/chi/v5"
)

// obligationRequest carries no paid flag. Only the pay endpoint changes it.
type obligationRequest struct {
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	CategoryID  string     `json:"categoryId"`
	DueDate     core.Date  `json:"dueDate"`
	// Months schedules that many monthly obligations; zero means one.
	Months int `json:"months"`
}

func (req obligationRequest) obligation(userID string) core.ScheduledObligation {
	return core.ScheduledObligation{
		UserID:      userID,
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
		CategoryID:  req.CategoryID,
		DueDate:     req.DueDate,
	}
}

// handleListObligations lists the obligations due in ?year=&month=,
// defaulting to the current month.
func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthQuery(r.URL.Query(), s.deps.Ledger.Today())
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	obs, err := s.deps.Ledger.ObligationsForMonth(r.Context(), userID(r), p.Year, p.Month)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(obs).Write(w)
}

func (s *Server) handleScheduleObligation(w http.ResponseWriter, r *http.Request) {
	var req obligationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(w, r, err)
		return
	}
	months := req.Months
	if months == 0 {
		months = 1
	}
	created, err := s.deps.Ledger.ScheduleObligation(r.Context(), req.obligation(userID(r)), months)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleDueSoon(w http.ResponseWriter, r *http.Request) {
	days, err := parseNonNegativeInt(r.URL.Query(), "days", s.deps.DueSoonDays)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	obs, err := s.deps.Ledger.DueSoon(r.Context(), userID(r), days)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(obs).Write(w)
}

func (s *Server) handleGetObligation(w http.ResponseWriter, r *http.Request) {
	o, err := s.deps.Ledger.GetObligation(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(o).Write(w)
}

func (s *Server) handleUpdateObligation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Ledger.GetObligation(r.Context(), userID(r), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	var req obligationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(w, r, err)
		return
	}
	o := req.obligation(userID(r))
	o.ID = id
	updated, err := s.deps.Ledger.UpdateObligation(r.Context(), o)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteObligation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Ledger.GetObligation(r.Context(), userID(r), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	if err := s.deps.Ledger.DeleteObligation(r.Context(), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePayObligation answers with the expense recorded for the payment.
func (s *Server) handlePayObligation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Ledger.GetObligation(r.Context(), userID(r), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	paid, err := s.deps.Ledger.PayObligation(r.Context(), id)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(paid).Write(w)
}
