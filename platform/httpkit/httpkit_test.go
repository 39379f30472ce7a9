package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"production_backend/platform/apperr"
	"production_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return "test-secret" }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestParseAccessToken(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	raw := signToken(t, jwt.MapClaims{
		"sub":       userID.String(),
		"type":      "access",
		"roles":     []string{"admin", "designer"},
		"tenant_id": tenantID.String(),
		"exp":       time.Now().Add(time.Minute).Unix(),
	})

	claims, err := ParseAccessToken(raw, testJWTConfig{})
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, tenantID, *claims.TenantID)
	assert.ElementsMatch(t, []string{"admin", "designer"}, claims.Roles)
}

func TestParseAccessTokenRejectsRefreshTokens(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": "refresh",
		"exp":  time.Now().Add(time.Minute).Unix(),
	})

	_, err := ParseAccessToken(raw, testJWTConfig{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHandleErrorHidesUntypedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Set(ContextLoggerKey, logger.New("test"))

	HandleError(c, errors.New("pq: relation \"secret_table\" does not exist"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", body.Code)
	assert.NotContains(t, body.Message, "secret_table")
}

func TestHandleErrorMapsDomainKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/x", nil)

	HandleError(c, apperr.InvalidTransition("cannot move from pending_design to approved").
		WithDetails(map[string]interface{}{"legalNext": []string{"assigned", "cancelled"}}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_TRANSITION", body.Code)
	assert.NotNil(t, body.Details)
}

func TestRequireAnyRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(ContextRolesKey, []string{"purchasing"})
		c.Next()
	})
	engine.GET("/admin", RequireAnyRole("admin"), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	engine.GET("/buy", RequireAnyRole("admin", "purchasing"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/buy", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIdentityFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID, tenantID := uuid.New(), uuid.New()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetIdentity(c))

	c.Set(ContextUserIDKey, userID)
	c.Set(ContextRolesKey, []string{"production"})
	id := GetIdentity(c)
	require.NotNil(t, id)
	assert.Equal(t, userID, id.UserID())
	assert.True(t, id.HasRole("production"))
	assert.False(t, id.HasRole("admin"))
	assert.Nil(t, id.TenantID())

	c.Set(ContextTenantIDKey, tenantID)
	require.NotNil(t, GetIdentity(c).TenantID())
	assert.Equal(t, tenantID, *GetIdentity(c).TenantID())
}

func TestMustGetIdentityAndTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	assert.Nil(t, MustGetIdentity(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Set(ContextUserIDKey, uuid.New())
	id := MustGetIdentity(c)
	require.NotNil(t, id)
	_, ok := MustGetTenantID(c, id)
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
