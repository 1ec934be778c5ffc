package http

import (
	"net/http"
	"strings"

	"ledger/internal/core"
)

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	o, err := s.deps.Ledger.MonthOverview(r.Context(), userID(r), p.Year, p.Month)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(o).Write(w)
}

func (s *Server) handleYearOverview(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	months, err := s.deps.Ledger.YearOverview(r.Context(), userID(r), p.Year)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(months).Write(w)
}

// handleSavingsProgress compares the month's savings with ?goal=.
func (s *Server) handleSavingsProgress(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	goal, err := core.ParseAmount(strings.TrimSpace(r.URL.Query().Get("goal")))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	progress, err := s.deps.Ledger.SavingsProgress(r.Context(), userID(r), p.Year, p.Month, goal)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(progress).Write(w)
}

// handlePushSummary appends the month overview to the summary sheet.
func (s *Server) handlePushSummary(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sheets == nil {
		ErrorResponse(r.Context(), http.StatusServiceUnavailable, "summary sheet not configured").Write(w)
		return
	}
	p, err := ParseMonthParams(r)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	ref, err := s.deps.Ledger.PushMonthOverview(r.Context(), s.deps.Sheets, userID(r), p.Year, p.Month)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]string{"ref": ref}).Write(w)
}
