package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/devstream-shilpa/Media-Platform/internal/auth"
	"github.com/devstream-shilpa/Media-Platform/internal/store"
)

const healthTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := map[string]string{"database": "ok", "cache": "ok"}
	healthy := true
	if err := s.store.Ping(ctx); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Database health check failed")
		checks["database"] = "unavailable"
		healthy = false
	}
	if err := s.cache.Ping(ctx); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Cache health check failed")
		checks["cache"] = "unavailable"
		healthy = false
	}

	if !healthy {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": checks})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "checks": checks})
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.store.CreateUser(r.Context(), req.Email, hash)
	if errors.Is(err, store.ErrEmailTaken) {
		httpError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create account", err.Error())
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to issue token", err.Error())
		return
	}
	hlog.FromRequest(r).Info().Str("userId", user.ID).Msg("User registered")
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":    user.ID,
		"email": user.Email,
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		httpError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "login failed", err.Error())
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		httpError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to issue token", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token, "userId": user.ID})
}
