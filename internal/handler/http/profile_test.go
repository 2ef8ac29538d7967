package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doGet(t *testing.T, router http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// GetProfile Tests
// ============================================================================

func TestGetProfile_Success(t *testing.T) {
	f := newHandlerFixture(t)
	token := authenticate(t, f, handlerTestPhone)

	rec := doGet(t, f.router, "/profile", token)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "profile retrieved", resp.Message)
	require.NotNil(t, resp.User)
	assert.Equal(t, handlerTestPhone, resp.User.Phone)
	assert.Empty(t, resp.User.FirstName, "lazily provisioned user starts blank")
}

func TestGetProfile_MissingAuthorization(t *testing.T) {
	f := newHandlerFixture(t)

	rec := doGet(t, f.router, "/profile", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "authorization token required", resp.Message)
}

func TestGetProfile_NonBearerHeader(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
}

func TestGetProfile_GarbageToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := doGet(t, f.router, "/profile", "not.a.jwt")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid token", resp.Message)
}

func TestGetProfile_UserDeleted(t *testing.T) {
	f := newHandlerFixture(t)
	token := authenticate(t, f, handlerTestPhone)

	// Simulate the account vanishing out from under a live session.
	for id := range f.users.users {
		delete(f.users.users, id)
	}

	rec := doGet(t, f.router, "/profile", token)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
}

// ============================================================================
// UpdateProfile Tests
// ============================================================================

func TestUpdateProfile_Success(t *testing.T) {
	f := newHandlerFixture(t)
	token := authenticate(t, f, handlerTestPhone)

	body, _ := json.Marshal(map[string]string{
		"first_name": "Sara",
		"last_name":  "Ahmadi",
		"email":      "sara@example.com",
	})
	req := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "profile updated", resp.Message)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Sara", resp.User.FirstName)
	assert.Equal(t, "Ahmadi", resp.User.LastName)
	assert.Equal(t, handlerTestPhone, resp.User.Phone, "phone stays the account identity")
}

func TestUpdateProfile_InvalidEmail(t *testing.T) {
	f := newHandlerFixture(t)
	token := authenticate(t, f, handlerTestPhone)

	body, _ := json.Marshal(map[string]string{"email": "not-an-email"})
	req := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Email")
}

func TestUpdateProfile_MissingToken(t *testing.T) {
	f := newHandlerFixture(t)

	body, _ := json.Marshal(map[string]string{"first_name": "Sara"})
	req := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================================
// ValidateToken Tests
// ============================================================================

func TestValidateToken_Success(t *testing.T) {
	f := newHandlerFixture(t)
	token := authenticate(t, f, handlerTestPhone)

	rec := doGet(t, f.router, "/validate-token", token)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "token is valid", resp.Message)
}

func TestValidateToken_Missing(t *testing.T) {
	f := newHandlerFixture(t)

	rec := doGet(t, f.router, "/validate-token", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
}

// ============================================================================
// Sessions and Logout Tests
// ============================================================================

func TestSessions_Success(t *testing.T) {
	f := newHandlerFixture(t)

	code := requestOTP(t, f, handlerTestPhone)
	b, _ := json.Marshal(map[string]string{"phone": handlerTestPhone, "code": code})
	req := httptest.NewRequest(http.MethodPost, "/verify-otp", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("User-Agent", "test-client/1.0")
	verifyRec := httptest.NewRecorder()
	f.router.ServeHTTP(verifyRec, req)
	require.Equal(t, http.StatusOK, verifyRec.Code)
	token := decodeEnvelope(t, verifyRec).Token

	rec := doGet(t, f.router, "/sessions", token)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "203.0.113.7", resp.Sessions[0].IPAddress)
	assert.Equal(t, "test-client/1.0", resp.Sessions[0].UserAgent)
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newHandlerFixture(t)
	token := authenticate(t, f, handlerTestPhone)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "logged out", resp.Message)

	// The revoked token no longer validates even though the signature holds.
	after := doGet(t, f.router, "/validate-token", token)
	assert.Equal(t, http.StatusUnauthorized, after.Code)
	assert.Equal(t, "token is not valid or has been revoked", decodeEnvelope(t, after).Message)
}
