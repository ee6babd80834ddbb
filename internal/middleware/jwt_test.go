package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloghive/auth-service/internal/models"
	"github.com/bloghive/auth-service/internal/service"
)

func newTestRouter(tokens *service.TokenService) (*gin.Engine, *[]*models.JWTClaims) {
	gin.SetMode(gin.TestMode)
	seen := &[]*models.JWTClaims{}

	r := gin.New()
	r.Use(Authenticate(tokens, nil))
	r.GET("/open", func(c *gin.Context) {
		claims, _ := CurrentUser(c)
		*seen = append(*seen, claims)
		c.Status(http.StatusOK)
	})
	r.GET("/protected", RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/admin", RequireAuth(), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, seen
}

func issuerForTest() *service.TokenService {
	return service.NewTokenService(service.TokenConfig{
		Secret:             "test-secret",
		Issuer:             "bloghive-auth",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
}

func TestAuthenticateMissingHeaderIsAnonymous(t *testing.T) {
	r, seen := newTestRouter(issuerForTest())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, *seen, 1)
	assert.Nil(t, (*seen)[0])
}

func TestAuthenticateMalformedTokenIsAnonymousNotError(t *testing.T) {
	r, seen := newTestRouter(issuerForTest())

	for _, header := range []string{"Bearer garbage", "NotBearer abc", "Bearer"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(rec, req)

		// A bad token never aborts the request by itself.
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	for _, claims := range *seen {
		assert.Nil(t, claims)
	}
}

func TestAuthenticateExpiredTokenIsAnonymous(t *testing.T) {
	expiredIssuer := service.NewTokenService(service.TokenConfig{
		Secret:            "test-secret",
		AccessTokenExpiry: -time.Minute,
	})
	user := &models.User{ID: 1, Username: "alice", Role: models.RoleUser}
	token, err := expiredIssuer.IssueAccessToken(user)
	require.NoError(t, err)

	r, seen := newTestRouter(issuerForTest())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, *seen, 1)
	assert.Nil(t, (*seen)[0])
}

func TestAuthenticateValidTokenPopulatesIdentity(t *testing.T) {
	tokens := issuerForTest()
	user := &models.User{ID: 7, Username: "alice", Role: models.RoleAdmin}
	token, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)

	r, seen := newTestRouter(tokens)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, *seen, 1)
	claims := (*seen)[0]
	require.NotNil(t, claims)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []string{"ROLE_ADMIN"}, claims.Authorities)
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	r, _ := newTestRouter(issuerForTest())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRolesEnforced(t *testing.T) {
	tokens := issuerForTest()
	r, _ := newTestRouter(tokens)

	userToken, err := tokens.IssueAccessToken(&models.User{ID: 1, Username: "bob", Role: models.RoleUser})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken, err := tokens.IssueAccessToken(&models.User{ID: 2, Username: "root", Role: models.RoleAdmin})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
