package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zenfocus/backend/internal/identity"
	"zenfocus/backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

func newAuthRouter(issuer *identity.TokenIssuer, allowQuery bool) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.AuthMiddleware(middleware.AuthConfig{Issuer: issuer, AllowQueryToken: allowQuery}))
	router.GET("/protected", func(c *gin.Context) {
		id, ok := middleware.IdentityFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": id.UserID.String()})
	})
	return router
}

func issueToken(t *testing.T, issuer *identity.TokenIssuer) (string, identity.Identity) {
	t.Helper()
	id := identity.Identity{UserID: uuid.Must(uuid.NewV4()), Email: "ada@uni.edu", Provider: "password"}
	token, _, err := issuer.Issue(id)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token, id
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	router := newAuthRouter(identity.NewTokenIssuer("secret", "zenfocus", time.Hour), false)

	req, _ := http.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthMiddleware_InvalidFormat(t *testing.T) {
	router := newAuthRouter(identity.NewTokenIssuer("secret", "zenfocus", time.Hour), false)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	issuer := identity.NewTokenIssuer("secret", "zenfocus", time.Hour)
	other := identity.NewTokenIssuer("other-secret", "zenfocus", time.Hour)
	token, _ := issueToken(t, other)
	router := newAuthRouter(issuer, false)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	issuer := identity.NewTokenIssuer("secret", "zenfocus", time.Hour)
	token, id := issueToken(t, issuer)
	router := newAuthRouter(issuer, false)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	expected := `{"uid":"` + id.UserID.String() + `"}`
	if w.Body.String() != expected {
		t.Errorf("Expected body %s, got %s", expected, w.Body.String())
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	issuer := identity.NewTokenIssuer("secret", "zenfocus", time.Hour)
	token, _ := issueToken(t, issuer)

	for _, tc := range []struct {
		allow bool
		want  int
	}{
		{allow: true, want: http.StatusOK},
		{allow: false, want: http.StatusUnauthorized},
	} {
		router := newAuthRouter(issuer, tc.allow)
		req, _ := http.NewRequest("GET", "/protected?token="+token, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != tc.want {
			t.Errorf("allow=%v: expected status %d, got %d", tc.allow, tc.want, w.Code)
		}
	}
}
