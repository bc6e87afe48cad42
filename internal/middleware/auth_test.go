package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func issueCookie(t *testing.T, m *AuthMiddleware, userID int64) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	m.SetAuthCookie(rec, userID)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("SetAuthCookie set %d cookies, want 1", len(cookies))
	}
	return cookies[0]
}

func serveProtected(m *AuthMiddleware, cookie *http.Cookie) (int, int64, bool) {
	var (
		gotID int64
		inCtx bool
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, inCtx = GetUserIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/user/cart", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(rec, req)
	return rec.Code, gotID, inCtx
}

func TestAuthCookieRoundtrip(t *testing.T) {
	m := NewAuthMiddleware("storefront-test-key")
	cookie := issueCookie(t, m, 42)

	if cookie.Name != "storefront_auth" {
		t.Fatalf("cookie name = %q, want storefront_auth", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Fatalf("auth cookie must be HttpOnly")
	}

	status, id, inCtx := serveProtected(m, cookie)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if !inCtx || id != 42 {
		t.Fatalf("context user id = %d (present=%v), want 42", id, inCtx)
	}
}

func TestAuthRejectsBadCookies(t *testing.T) {
	m := NewAuthMiddleware("storefront-test-key")
	valid := issueCookie(t, m, 42)

	tampered := *valid
	tampered.Value = strings.Replace(valid.Value, "42.", "43.", 1)

	foreign := issueCookie(t, NewAuthMiddleware("another-key"), 42)

	garbage := &http.Cookie{Name: "storefront_auth", Value: "not-a-signed-value"}

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"tampered user id", &tampered},
		{"signed with another key", foreign},
		{"malformed value", garbage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, inCtx := serveProtected(m, tt.cookie)
			if status != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
			}
			if inCtx {
				t.Fatalf("handler must not run for a rejected cookie")
			}
		})
	}
}
