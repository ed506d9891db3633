package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAccess(t *testing.T) {
	svc := newTestService(t)

	valid, err := svc.IssueAccess("u42")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	var seenUserID string
	handler := RequireAccess(svc, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok {
			t.Errorf("identity missing from context")
		}
		seenUserID = id
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusForbidden},
		{"garbage token", "Bearer not.a.jwt", http.StatusForbidden},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status: got %d want %d", w.Code, tt.wantStatus)
			}
		})
	}

	if seenUserID != "u42" {
		t.Fatalf("resolved user: got %q want u42", seenUserID)
	}
}

func TestBearerFromRequestQueryFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=abc123", nil)

	tok, err := BearerFromRequest(r)
	if err != nil {
		t.Fatalf("BearerFromRequest: %v", err)
	}
	if tok != "abc123" {
		t.Fatalf("token: got %q want abc123", tok)
	}
}

func TestBearerFromRequestHeaderWinsOverQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=fromquery", nil)
	r.Header.Set("Authorization", "Bearer fromheader")

	tok, err := BearerFromRequest(r)
	if err != nil {
		t.Fatalf("BearerFromRequest: %v", err)
	}
	if tok != "fromheader" {
		t.Fatalf("token: got %q want fromheader", tok)
	}
}
