package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/satrapit/db-conn/internal/service"
	apperrors "github.com/satrapit/db-conn/pkg/errors"
	"github.com/satrapit/db-conn/pkg/validator"
)

// Every response carries the {"success": bool, "message": string, ...}
// envelope so thin clients can branch on the success field without
// inspecting HTTP status text.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// writeSuccess writes the success envelope, merging any endpoint-specific
// extra fields (token, user, debug_otp, ...) into the body.
func writeSuccess(w http.ResponseWriter, status int, message string, extra map[string]any) {
	body := map[string]any{
		"success": true,
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeFailure writes the failure envelope.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// writeAppError maps a service error onto the failure envelope. Structured
// errors carry their own status and user-facing message; anything else is a
// 500 with a generic message, logged with the underlying cause.
func writeAppError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeFailure(w, appErr.Status, appErr.Message)
		return
	}

	status := apperrors.HTTPStatus(err)
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		message = "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		message = err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		message = err.Error()
	default:
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	writeFailure(w, status, message)
}

func writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		fields := valErr.Fields()
		parts := make([]string, 0, len(fields))
		for name, msg := range fields {
			parts = append(parts, name+": "+msg)
		}
		writeFailure(w, http.StatusBadRequest, "validation failed: "+strings.Join(parts, "; "))
		return
	}

	writeFailure(w, http.StatusBadRequest, err.Error())
}

// bearerToken extracts the raw token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// clientInfo captures the requesting client's address and user agent.
// X-Forwarded-For is honored when present (first hop), advisory only.
func clientInfo(r *http.Request) service.ClientInfo {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		if idx := strings.Index(ip, ","); idx >= 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}

	return service.ClientInfo{
		IP:        ip,
		UserAgent: r.UserAgent(),
	}
}
