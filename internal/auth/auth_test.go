// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestSignAndParse(t *testing.T) {
	tok, err := SignToken(secret, "alice", time.Hour)
	require.NoError(t, err)

	sub, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestParseToken_Rejects(t *testing.T) {
	good, err := SignToken(secret, "alice", time.Hour)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString(secret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice",
		Issuer:  issuer,
	}).SignedString(secret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret []byte
		token  string
	}{
		{"wrong secret", []byte("other"), good},
		{"garbage", secret, "not-a-jwt"},
		{"expired", secret, expired},
		{"no expiry", secret, noExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSignToken_Validation(t *testing.T) {
	_, err := SignToken(nil, "alice", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)

	_, err = SignToken(secret, "  ", time.Hour)
	assert.Error(t, err)

	tok, err := SignToken(secret, "bob", 0)
	require.NoError(t, err)
	_, err = ParseToken(secret, tok)
	assert.NoError(t, err)
}

func serve(t *testing.T, mwSecret []byte, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen, _ = CurrentUser(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}, Middleware(mwSecret))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware(t *testing.T) {
	tok, err := SignToken(secret, "alice", time.Hour)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec, user := serve(t, secret, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "alice", user)
	})

	t.Run("query parameter", func(t *testing.T) {
		rec, user := serve(t, secret, httptest.NewRequest(http.MethodGet, "/?token="+tok, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "alice", user)
	})

	t.Run("anonymous", func(t *testing.T) {
		rec, user := serve(t, secret, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, user)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec, _ := serve(t, secret, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no secret configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec, user := serve(t, nil, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, user)
	})
}

func TestCurrentUser(t *testing.T) {
	_, ok := CurrentUser(context.Background())
	assert.False(t, ok)

	_, ok = CurrentUser(WithUser(context.Background(), ""))
	assert.False(t, ok)

	id, ok := CurrentUser(WithUser(context.Background(), "carol"))
	assert.True(t, ok)
	assert.Equal(t, "carol", id)
}
