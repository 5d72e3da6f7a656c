package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alexedwards/argon2id"
	"github.com/trailhead/tour-bookings/internal/domain"
	"github.com/trailhead/tour-bookings/internal/http/response"
	"github.com/trailhead/tour-bookings/internal/repo/postgres"
	"github.com/trailhead/tour-bookings/internal/utils"
	"github.com/trailhead/tour-bookings/pkg/auth"
	"github.com/trailhead/tour-bookings/pkg/events"
	"github.com/trailhead/tour-bookings/pkg/logger"
)

const minPasswordLength = 8

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if req.Name == "" {
		response.BadRequest(w, "Name is required")
		return
	}
	if !utils.IsValidEmail(req.Email) {
		response.BadRequest(w, "Invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		response.BadRequest(w, "Password must be at least 8 characters")
		return
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to hash password", "error", err)
		response.InternalError(w, "Failed to create account")
		return
	}

	user, err := h.userRepo.Create(r.Context(), req.Name, utils.NormalizeEmail(req.Email), hash)
	if errors.Is(err, postgres.ErrEmailTaken) {
		response.WriteError(w, http.StatusConflict, "Email already registered", response.CodeEmailExists)
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create user", "error", err)
		response.InternalError(w, "Failed to create account")
		return
	}

	if err := h.bus.Publish(r.Context(), events.UserSignedUp, events.UserSignedUpEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}); err != nil {
		logger.ErrorContext(r.Context(), "Failed to publish user signed up event", "error", err, "user_id", user.ID)
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.Role, h.config.Auth.JWTSecret, h.config.Auth.AccessTokenTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to issue token", "error", err)
		response.InternalError(w, "Failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.BadRequest(w, "Email and password are required")
		return
	}

	user, err := h.userRepo.FindByEmail(r.Context(), utils.NormalizeEmail(req.Email))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to look up user", "error", err)
		response.InternalError(w, "Failed to log in")
		return
	}
	if user == nil {
		response.Unauthorized(w, "Invalid email or password")
		return
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil || !match {
		response.Unauthorized(w, "Invalid email or password")
		return
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.Role, h.config.Auth.JWTSecret, h.config.Auth.AccessTokenTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to issue token", "error", err)
		response.InternalError(w, "Failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
