package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/solarfin/backend/internal/infrastructure/auth"
	"github.com/solarfin/backend/internal/infrastructure/backend"
	"github.com/solarfin/backend/internal/infrastructure/config"
	"github.com/solarfin/backend/internal/infrastructure/logger"
	"github.com/solarfin/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "test-issuer",
	})
}

func newJWTRouter(svc *auth.JWTService) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuth(svc))
	router.GET("/api/v1/loans", func(c *gin.Context) {
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"viewer":     GetViewerID(c),
			"log_viewer": logger.GetViewerID(ctx),
			"bearer":     backend.BearerToken(ctx),
		})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	token, err := svc.GenerateToken("user-42", "customer", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	newJWTRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-42", body["viewer"])
	assert.Equal(t, "user-42", body["log_viewer"])
	assert.Equal(t, token, body["bearer"], "the viewer token is forwarded upstream")
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := newTestJWTService()
	expired, err := svc.GenerateToken("user-42", "customer", -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-chars", Issuer: "test-issuer"}).
		GenerateToken("user-42", "customer", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", dto.ErrCodeTokenInvalid},
		{"not a bearer", "Basic dXNlcjpwYXNz", dto.ErrCodeTokenInvalid},
		{"empty bearer", "Bearer ", dto.ErrCodeTokenInvalid},
		{"expired", BearerPrefix + expired, dto.ErrCodeTokenExpired},
		{"wrong signature", BearerPrefix + foreign, dto.ErrCodeTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			newJWTRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	w := httptest.NewRecorder()
	newJWTRouter(newTestJWTService()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
