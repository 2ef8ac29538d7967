package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/satrapit/db-conn/internal/service"
	"github.com/satrapit/db-conn/pkg/validator"
)

// ProfileHandler handles the token-protected endpoints. The raw bearer token
// is passed through to the service, which owns signature, expiry, and
// revocation checking end to end.
type ProfileHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewProfileHandler creates a new profile HTTP handler.
func NewProfileHandler(svc *service.AuthService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: svc, logger: logger}
}

// UpdateProfileRequest is the JSON request body for profile updates. The
// phone number is the account identity and is not updatable.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	BirthDate *string `json:"birth_date" validate:"omitempty,max=20"`
}

// GetProfile handles GET /profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Profile(r.Context(), bearerToken(r))
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, "profile retrieved", map[string]any{
		"user": user,
	})
}

// UpdateProfile handles PUT /profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := service.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		BirthDate: req.BirthDate,
	}

	user, err := h.service.UpdateProfile(r.Context(), bearerToken(r), input)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, "profile updated", map[string]any{
		"user": user,
	})
}

// ValidateToken handles GET /validate-token
func (h *ProfileHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ValidateToken(r.Context(), bearerToken(r)); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, "token is valid", nil)
}

// Sessions handles GET /sessions
func (h *ProfileHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.Sessions(r.Context(), bearerToken(r))
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, "active sessions retrieved", map[string]any{
		"sessions": sessions,
	})
}

// Logout handles POST /logout
func (h *ProfileHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), bearerToken(r)); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, "logged out", nil)
}
