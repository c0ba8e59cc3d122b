package api

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"fileshare/internal/models"
	"fileshare/internal/permissions"

	"github.com/stretchr/testify/require"
)

func TestRequireCapability(t *testing.T) {
	s := &Server{perms: permissions.Default()}
	h := s.RequireCapability(permissions.UploadFiles)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/files", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	for role, want := range map[permissions.Role]int{
		permissions.RoleAdmin: http.StatusOK,
		permissions.RoleUser:  http.StatusOK,
		permissions.RoleGuest: http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", nil)
		req = req.WithContext(withUser(req.Context(), &models.User{ID: 1, Role: role}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, want, rr.Code, role)
	}
}

func TestAuthMiddlewareRejectsMalformedHeaders(t *testing.T) {
	s := &Server{config: testConfig()}
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code, header)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.NotEmpty(t, rr.Header().Get("Strict-Transport-Security"))
}
