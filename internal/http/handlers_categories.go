package http

import (
	"context"
	"fmt"
	"net/http"

	"ledger/internal/core"

	"github.com/go-chi/chi/v5"
)

type categoryRequest struct {
	Name  string         `json:"name"`
	Color string         `json:"color"`
	Type  core.EntryType `json:"type"`
	// Shared creates a category visible to every user.
	Shared bool `json:"shared"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Ledger.VisibleCategories(r.Context(), userID(r))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(w, r, err)
		return
	}
	c := core.Category{
		Name:  sanitizeInput(req.Name),
		Color: sanitizeInput(req.Color),
		Type:  req.Type,
	}
	if !req.Shared {
		c.OwnerID = userID(r)
	}
	created, err := s.deps.Ledger.CreateCategory(r.Context(), c)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ensureVisibleCategory(r.Context(), userID(r), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(w, r, err)
		return
	}
	updated, err := s.deps.Ledger.UpdateCategory(r.Context(), core.Category{
		ID:    id,
		Name:  sanitizeInput(req.Name),
		Color: sanitizeInput(req.Color),
		Type:  req.Type,
	})
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ensureVisibleCategory(r.Context(), userID(r), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	if err := s.deps.Ledger.DeleteCategory(r.Context(), id); err != nil {
		ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ensureVisibleCategory hides categories owned by other users.
func (s *Server) ensureVisibleCategory(ctx context.Context, userID, id string) error {
	cats, err := s.deps.Ledger.VisibleCategories(ctx, userID)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if c.ID == id {
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
}
