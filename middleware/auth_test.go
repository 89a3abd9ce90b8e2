package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func echoReviewer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ReviewerFrom(r.Context())))
	})
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	rec := httptest.NewRecorder()
	Auth("")(echoReviewer()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/domains", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Anonymous, rec.Body.String())
}

func TestAuthAcceptsHeaderAndQueryTokens(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "rev-1", "exp": time.Now().Add(time.Hour).Unix()})
	h := Auth(secret)(echoReviewer())

	req := httptest.NewRequest(http.MethodGet, "/api/domains", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rev-1", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	assert.Equal(t, "rev-1", rec.Body.String())
}

func TestAuthRejects(t *testing.T) {
	h := Auth(secret)(echoReviewer())
	cases := map[string]string{
		"missing":   "",
		"garbage":   "not-a-token",
		"wrong key": sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "rev-1"}),
		"expired":   sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "rev-1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no sub":    sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"name": "x"}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/domains", nil)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS("*", http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/records/save", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/domains", nil))
	assert.True(t, called)
}
