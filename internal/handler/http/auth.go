package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/satrapit/db-conn/internal/service"
	"github.com/satrapit/db-conn/pkg/validator"
)

// AuthHandler handles the public code issuance and verification endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// SendOTPRequest is the JSON request body for code issuance.
type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
}

// VerifyOTPRequest is the JSON request body for code verification.
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// --- Handlers ---

// SendOTP handles POST /send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := h.service.RequestCode(r.Context(), req.Phone, clientInfo(r))
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	message := "verification code sent"
	extra := map[string]any{}

	if result.Resent {
		message = "verification code already sent, try again shortly"
	}
	if result.DebugCode != "" {
		extra["debug_otp"] = result.DebugCode
	}

	writeSuccess(w, http.StatusOK, message, extra)
}

// VerifyOTP handles POST /verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	token, user, err := h.service.VerifyCode(r.Context(), req.Phone, req.Code, clientInfo(r))
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, "authentication successful", map[string]any{
		"token": token,
		"user":  user,
	})
}
