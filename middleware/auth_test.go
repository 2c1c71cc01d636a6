package middleware

import (
	"net/http"
	"net/http/httptest"
	"slideshow-server/core"
	"slideshow-server/handlers/auth"
	"testing"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestAuthJWT(t *testing.T) {
	a := auth.New("secret", nil)
	guest, _ := a.CreateJWT(core.RoleGuest)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + guest, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + guest, http.StatusNoContent},
		{"lowercase scheme", "bearer " + guest, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/deck", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			AuthJWT(a)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	a := auth.New("secret", nil)
	guest, _ := a.CreateJWT(core.RoleGuest)
	admin, _ := a.CreateJWT(core.RoleAdmin)
	handler := AuthJWT(a)(RequireAdmin(http.HandlerFunc(okHandler)))

	for token, want := range map[string]int{guest: http.StatusForbidden, admin: http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodDelete, "/api/slides/0", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != want {
			t.Errorf("status = %d, want %d", rr.Code, want)
		}
	}

	rr := httptest.NewRecorder()
	RequireAdmin(http.HandlerFunc(okHandler)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusForbidden {
		t.Errorf("status without claims = %d, want 403", rr.Code)
	}
}
