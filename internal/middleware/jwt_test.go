package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlefevre/boutique-api/internal/middleware"
	"github.com/mlefevre/boutique-api/internal/utils"
)

const testSecret = "middleware-test-secret"

func protectedEcho() *echo.Echo {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id": c.Get("user_id"),
			"email":   c.Get("email"),
			"role":    c.Get("role"),
		})
	}, middleware.JWTAuth(testSecret))
	return e
}

func TestJWTAuth_MissingToken(t *testing.T) {
	e := protectedEcho()

	for _, header := range []string{"", "Bearer", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "authorization token missing")
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	e := protectedEcho()

	// Garbage, and a token signed with a different secret: both get the
	// same generic message.
	other, err := utils.NewAccessToken("some-other-secret", 1, "a@b.c", "user", 300)
	require.NoError(t, err)

	for _, tok := range []string{"not-a-jwt", other.Token} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid or expired access token")
	}
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	e := protectedEcho()

	expired, err := utils.NewAccessToken(testSecret, 1, "a@b.c", "user", -60)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+expired.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired access token")
}

func TestJWTAuth_ValidTokenExposesIdentity(t *testing.T) {
	e := protectedEcho()

	access, err := utils.NewAccessToken(testSecret, 7, "prof@example.com", "admin", 300)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":7,"email":"prof@example.com","role":"admin"}`, rec.Body.String())
}
