package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fonality-code/wayfinder-life-sub000/config"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var testJWTCfg = config.JWTConfig{
	SecretKey:      "test-secret",
	Issuer:         "wayfinder-test",
	Audience:       "wayfinder-api",
	AccessTokenTTL: 15 * time.Minute,
	CookieName:     "wayfinder_session",
}

func signTestToken(t *testing.T, cfg config.JWTConfig, claims types.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.SecretKey))
	require.NoError(t, err)
	return signed
}

func validClaims() types.Claims {
	return types.Claims{
		UserID:   "user-123",
		Username: "Test User",
		Email:    "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testJWTCfg.Issuer,
			Audience:  jwt.ClaimStrings{testJWTCfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestCurrentPrincipal(t *testing.T) {
	reader := NewSessionReader(testJWTCfg, slog.Default())

	t.Run("no session yields nil", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		assert.Nil(t, reader.CurrentPrincipal(r))
	})

	t.Run("valid cookie yields principal", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{
			Name:  testJWTCfg.CookieName,
			Value: signTestToken(t, testJWTCfg, validClaims()),
		})

		principal := reader.CurrentPrincipal(r)

		require.NotNil(t, principal)
		assert.Equal(t, "user-123", principal.ID)
		assert.Equal(t, "test@example.com", principal.Email)
	})

	t.Run("bearer header accepted for non-browser clients", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+signTestToken(t, testJWTCfg, validClaims()))

		principal := reader.CurrentPrincipal(r)

		require.NotNil(t, principal)
		assert.Equal(t, "user-123", principal.ID)
	})

	t.Run("expired token yields nil, not an error", func(t *testing.T) {
		claims := validClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{
			Name:  testJWTCfg.CookieName,
			Value: signTestToken(t, testJWTCfg, claims),
		})

		assert.Nil(t, reader.CurrentPrincipal(r))
	})

	t.Run("garbage cookie yields nil", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: testJWTCfg.CookieName, Value: "not-a-jwt"})

		assert.Nil(t, reader.CurrentPrincipal(r))
	})

	t.Run("wrong signing key yields nil", func(t *testing.T) {
		otherCfg := testJWTCfg
		otherCfg.SecretKey = "some-other-secret"

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{
			Name:  testJWTCfg.CookieName,
			Value: signTestToken(t, otherCfg, validClaims()),
		})

		assert.Nil(t, reader.CurrentPrincipal(r))
	})

	t.Run("issuer mismatch yields nil", func(t *testing.T) {
		claims := validClaims()
		claims.Issuer = "someone-else"

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{
			Name:  testJWTCfg.CookieName,
			Value: signTestToken(t, testJWTCfg, claims),
		})

		assert.Nil(t, reader.CurrentPrincipal(r))
	})

	t.Run("audience mismatch yields nil", func(t *testing.T) {
		claims := validClaims()
		claims.Audience = jwt.ClaimStrings{"other-api"}

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{
			Name:  testJWTCfg.CookieName,
			Value: signTestToken(t, testJWTCfg, claims),
		})

		assert.Nil(t, reader.CurrentPrincipal(r))
	})
}

func TestIdentify(t *testing.T) {
	reader := NewSessionReader(testJWTCfg, slog.Default())

	t.Run("passes anonymous requests through", func(t *testing.T) {
		var sawPrincipal bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, sawPrincipal = GetPrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		reader.Identify(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, sawPrincipal)
	})

	t.Run("stores principal for authenticated requests", func(t *testing.T) {
		var gotID string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, ok := GetPrincipalFromContext(r.Context()); ok {
				gotID = principal.ID
			}
			w.WriteHeader(http.StatusOK)
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{
			Name:  testJWTCfg.CookieName,
			Value: signTestToken(t, testJWTCfg, validClaims()),
		})

		rec := httptest.NewRecorder()
		reader.Identify(next).ServeHTTP(rec, r)

		assert.Equal(t, "user-123", gotID)
	})
}

func TestRequireAuthenticated(t *testing.T) {
	t.Run("rejects anonymous requests", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		})

		rec := httptest.NewRecorder()
		RequireAuthenticated(slog.Default())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("passes authenticated requests", func(t *testing.T) {
		reader := NewSessionReader(testJWTCfg, slog.Default())
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{
			Name:  testJWTCfg.CookieName,
			Value: signTestToken(t, testJWTCfg, validClaims()),
		})

		rec := httptest.NewRecorder()
		reader.Identify(RequireAuthenticated(slog.Default())(next)).ServeHTTP(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
