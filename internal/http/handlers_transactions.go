package http

import (
	"net/http"

	"ledger/internal/core"

	"github.com/go-chi/chi/v5"
)

type transactionRequest struct {
	Type        core.EntryType `json:"type"`
	Amount      core.Money     `json:"amount"`
	Description string         `json:"description"`
	CategoryID  string         `json:"categoryId"`
	Date        core.Date      `json:"date"`
	IsRecurring bool           `json:"isRecurring"`
	// RecurringMonths is the number of monthly instances to create.
	RecurringMonths int `json:"recurringMonths"`
}

func (req transactionRequest) transaction(userID string) core.Transaction {
	return core.Transaction{
		UserID:          userID,
		Type:            req.Type,
		Amount:          req.Amount,
		Description:     sanitizeInput(req.Description),
		CategoryID:      req.CategoryID,
		Date:            req.Date,
		IsRecurring:     req.IsRecurring,
		RecurringMonths: req.RecurringMonths,
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	txns, err := s.deps.Ledger.ListTransactions(r.Context(), userID(r), f)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(txns).Write(w)
}

// handleCreateTransaction answers with every stored instance; a recurring
// request yields one per month.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(w, r, err)
		return
	}
	created, err := s.deps.Ledger.CreateTransaction(r.Context(), req.transaction(userID(r)), req.RecurringMonths)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Ledger.GetTransaction(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Ledger.GetTransaction(r.Context(), userID(r), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(w, r, err)
		return
	}
	t := req.transaction(userID(r))
	t.ID = id
	updated, err := s.deps.Ledger.UpdateTransaction(r.Context(), t)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Ledger.GetTransaction(r.Context(), userID(r), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	if err := s.deps.Ledger.DeleteTransaction(r.Context(), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
