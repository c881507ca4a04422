package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coolnight20187/python-7ty-system/internal/pkg/jwt"
)

func TestAuthAllowsValidAccessToken(t *testing.T) {
	jwtSvc := jwt.NewService("secret")
	token, err := jwtSvc.SignAccessToken(uuid.New(), RoleAgent, time.Minute)
	if err != nil {
		t.Fatalf("token sign failed: %v", err)
	}

	protected := Auth(jwtSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRole(r.Context()) != RoleAgent {
			t.Errorf("role = %q, want agent", GetRole(r.Context()))
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	jwtSvc := jwt.NewService("secret")

	protected := Auth(jwtSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	jwtSvc := jwt.NewService("secret")
	token, err := jwtSvc.SignAccessToken(uuid.New(), RoleAgent, time.Minute)
	if err != nil {
		t.Fatalf("token sign failed: %v", err)
	}

	handler := Auth(jwtSvc)(RequireBackOffice()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("agent on back-office route: expected 403, got %d", w.Code)
	}

	adminToken, err := jwtSvc.SignAccessToken(uuid.New(), RoleAdmin, time.Minute)
	if err != nil {
		t.Fatalf("token sign failed: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("admin on back-office route: expected 200, got %d", w.Code)
	}
}
