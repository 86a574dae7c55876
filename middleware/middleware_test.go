package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compoundhabits/habits/middleware"
	"github.com/compoundhabits/habits/models"
	"github.com/compoundhabits/habits/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(tokens *utils.TokenManager, bl *utils.TokenBlacklist) *gin.Engine {
	r := gin.New()
	r.GET("/me", middleware.AuthRequired(tokens, bl), func(c *gin.Context) {
		owner, ok := middleware.OwnerFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		utils.Success(c, gin.H{"owner": owner})
	})
	return r
}

func code(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestAuthRequired(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	bl := utils.NewTokenBlacklist(nil)
	r := newAuthRouter(tokens, bl)
	token, exp, err := tokens.GenerateToken(&models.User{ID: 9})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		cookie string
		status int
		code   int
	}{
		{"missing", "", "", http.StatusUnauthorized, 40101},
		{"bad scheme", "Basic abc", "", http.StatusUnauthorized, 40102},
		{"empty bearer", "Bearer  ", "", http.StatusUnauthorized, 40103},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized, 40105},
		{"header", "Bearer " + token, "", http.StatusOK, 0},
		{"cookie", "", token, http.StatusOK, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tc.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, code(t, w))
		})
	}

	t.Run("revoked", func(t *testing.T) {
		require.NoError(t, bl.Revoke(context.Background(), token, exp))
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, 40104, code(t, w))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(4))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	get := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// burst is half the per-minute rate
	assert.Equal(t, http.StatusNoContent, get("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, get("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, get("10.0.0.2"), "other clients have their own bucket")
}
