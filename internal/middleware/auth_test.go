package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pesaflow/pesaflow-backend/internal/auth"
)

func newTM() *auth.TokenManager {
	return auth.NewTokenManager("acc", "ref", "test", time.Minute, time.Hour)
}

func TestAuthMiddleware(t *testing.T) {
	tm := newTM()
	mw := NewAuthMiddleware(tm)

	var gotUID, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID, _ = UserID(r.Context())
		gotRole, _ = Role(r.Context())
	})

	access, refresh, _, err := tm.GeneratePair("user-1", "agent")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid access", "Bearer " + access, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"refresh used as access", "Bearer " + refresh, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.Auth(next).ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
	if gotUID != "user-1" || gotRole != "agent" {
		t.Errorf("context carried (%q, %q), want (user-1, agent)", gotUID, gotRole)
	}
}

func TestRequireRole(t *testing.T) {
	tm := newTM()
	mw := NewAuthMiddleware(tm)
	access, _, _, _ := tm.GeneratePair("user-1", "customer")

	handler := mw.Auth(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer hitting admin route: status = %d, want 403", rec.Code)
	}

	handler = mw.Auth(RequireRole("customer", "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("allowed role blocked: status = %d", rec.Code)
	}
}

func TestLocalRateLimit(t *testing.T) {
	handler := RateLimit(nil, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("first requests limited: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("burst not limited: %v", codes)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}
