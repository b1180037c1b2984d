package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgAuth "github.com/payboard/payboard-backend/pkg/auth"
	"github.com/payboard/payboard-backend/pkg/config"
	"github.com/payboard/payboard-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "payboard-test", ExpirationMinutes: 5}

func mintToken(t *testing.T) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{
		DiscordID: "1001",
		Role:      enums.RoleAdmin,
		Nickname:  "Alpha",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthSeedsIdentity(t *testing.T) {
	var gotID, gotRole, gotNickname string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = DiscordIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotNickname = NicknameFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t))
	resp := httptest.NewRecorder()

	Auth(testJWT, nil)(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotID != "1001" || gotRole != string(enums.RoleAdmin) || gotNickname != "Alpha" {
		t.Fatalf("identity not seeded: id=%q role=%q nickname=%q", gotID, gotRole, gotNickname)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	resp := httptest.NewRecorder()

	Auth(testJWT, nil)(next).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a bad token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()

	Auth(testJWT, nil)(next).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireRoleBlocksNonAdmins(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	guard := RequireRole(string(enums.RoleAdmin), nil)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req = req.WithContext(WithIdentity(req.Context(), "1002", string(enums.RoleUser), "Beta"))
	resp := httptest.NewRecorder()

	guard.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if called {
		t.Fatal("handler must not run for a non-admin")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req = req.WithContext(WithIdentity(req.Context(), "1001", string(enums.RoleAdmin), "Alpha"))
	resp = httptest.NewRecorder()

	guard.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !called {
		t.Fatalf("admin must pass, got %d", resp.Code)
	}
}
