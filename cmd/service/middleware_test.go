package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims TokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return raw
}

func authedHandler() (http.Handler, *string) {
	var seenUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = r.Header.Get("X-User-Id")
		w.WriteHeader(http.StatusOK)
	})
	return jwtAuthMiddleware(testSecret)(next), &seenUser
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	h, seenUser := authedHandler()

	raw := signToken(t, TokenClaims{
		UserID:    "host-1",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest("GET", "/packages", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "host-1", *seenUser)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	h, _ := authedHandler()

	expired := signToken(t, TokenClaims{
		UserID:    "host-1",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	refresh := signToken(t, TokenClaims{
		UserID:    "host-1",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	tests := []struct {
		name   string
		header string
	}{
		{"MissingHeader", ""},
		{"NotBearer", "Basic abc"},
		{"Garbage", "Bearer not-a-token"},
		{"Expired", "Bearer " + expired},
		{"WrongTokenType", "Bearer " + refresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/packages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestBodySizeLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := bodySizeLimitMiddleware(16)(next)

	req := httptest.NewRequest("POST", "/packages", nil)
	req.ContentLength = 64
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	})
	h := corsMiddleware(next)

	req := httptest.NewRequest("OPTIONS", "/packages", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
