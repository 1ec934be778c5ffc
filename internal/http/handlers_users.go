package http

import (
	"net/http"
)

type signupRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

type authRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

type resetRequest struct {
	Email   string `json:"email"`
	Secret  string `json:"secret"`
	Confirm string `json:"confirm"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(w, r, err)
		return
	}
	u, err := s.deps.Users.Signup(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Email), req.Secret)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/users/"+u.ID).
		Body(u).
		Write(w)
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(w, r, err)
		return
	}
	u, err := s.deps.Users.Authenticate(r.Context(), sanitizeInput(req.Email), req.Secret)
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(u).Write(w)
}

func (s *Server) handleResetSecret(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(w, r, err)
		return
	}
	if err := s.deps.Users.ResetSecret(r.Context(), sanitizeInput(req.Email), req.Secret, req.Confirm); err != nil {
		ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Users.Lookup(r.Context(), userID(r))
	if err != nil {
		ServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(u).Write(w)
}
