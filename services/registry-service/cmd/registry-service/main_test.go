package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/auth"
)

func TestRequireAuth(t *testing.T) {
	secret := "test-secret"
	claims := auth.Claims{
		Sub:  "user-1",
		Role: "admin",
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(1 * time.Hour).Unix(),
	}
	token, err := auth.SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	h := requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Id") != claims.Sub || r.Header.Get("X-Role") != claims.Role {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), secret)

	req := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	reqBad := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	reqBad.Header.Set("Authorization", "Bearer badtoken")
	rwBad := httptest.NewRecorder()
	h.ServeHTTP(rwBad, reqBad)
	if rwBad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwBad.Code)
	}

	reqMissing := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	rwMissing := httptest.NewRecorder()
	h.ServeHTTP(rwMissing, reqMissing)
	if rwMissing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing header, got %d", rwMissing.Code)
	}
}
