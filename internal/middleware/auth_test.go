package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/jwt"
)

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": CurrentUserID(c), "role": CurrentRole(c)})
	}
	r.GET("/optional", OptionalAuth(), whoami)
	r.GET("/user", Auth(), whoami)
	r.GET("/admin", Auth(), RequireAdmin(), whoami)
	return r
}

func call(t *testing.T, r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRoles(t *testing.T) {
	r := authRouter()
	user, err := jwt.Sign(7, "user", time.Hour)
	require.NoError(t, err)
	admin, err := jwt.Sign(1, "admin", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(t, r, "/optional", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, "/user", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, "/user", "garbage").Code)

	w := call(t, r, "/user", user)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":7,"role":"USER"}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, call(t, r, "/admin", user).Code)
	assert.Equal(t, http.StatusOK, call(t, r, "/admin", admin).Code)
}

func TestExpiredTokenIsAnonymous(t *testing.T) {
	r := authRouter()
	expired, err := jwt.Sign(7, string(models.RoleUser), -time.Minute)
	require.NoError(t, err)

	w := call(t, r, "/optional", expired)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":0,"role":""}`, w.Body.String())
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "abc", NormalizeToken("  Bearer abc "))
	assert.Equal(t, "abc", NormalizeToken("bearer abc"))
	assert.Equal(t, "abc", NormalizeToken("abc"))
	assert.Empty(t, NormalizeToken("   "))
}
