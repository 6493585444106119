package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/models"
	"github.com/atlastours/atlas-api/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

var testUserID = primitive.NewObjectID()

func staticLoader(user *models.User) UserLoader {
	return func(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
		if user != nil && user.ID == id {
			return user, nil
		}
		return nil, apperror.NotFound("no user")
	}
}

func protectedRouter(issuer *utils.TokenIssuer, load UserLoader) *gin.Engine {
	r := gin.New()
	r.Use(apperror.Handler(logrus.New(), true))
	r.GET("/api/secret", Protect(issuer, load), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"user": user.Email})
	})
	return r
}

func TestProtectWithValidBearerToken(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	user := &models.User{ID: testUserID, Email: "a@x.com", Role: models.RoleUser}
	token, err := issuer.Sign(testUserID.Hex())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/secret", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protectedRouter(issuer, staticLoader(user)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@x.com")
}

func TestProtectWithCookieToken(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	user := &models.User{ID: testUserID, Email: "a@x.com"}
	token, err := issuer.Sign(testUserID.Hex())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/secret", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	w := httptest.NewRecorder()
	protectedRouter(issuer, staticLoader(user)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectRejectsMissingToken(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/secret", nil)
	w := httptest.NewRecorder()
	protectedRouter(issuer, staticLoader(nil)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectRejectsExpiredToken(t *testing.T) {
	expired := utils.NewTokenIssuer("secret", -time.Minute)
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	user := &models.User{ID: testUserID}
	token, err := expired.Sign(testUserID.Hex())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/secret", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protectedRouter(issuer, staticLoader(user)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestProtectRejectsDeletedUser(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Sign(testUserID.Hex())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/secret", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protectedRouter(issuer, staticLoader(nil)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "no longer exists")
}

func TestProtectRejectsTokenIssuedBeforePasswordChange(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Sign(testUserID.Hex())
	require.NoError(t, err)

	user := &models.User{ID: testUserID, PasswordChangedAt: time.Now().Add(time.Minute)}
	req := httptest.NewRequest(http.MethodGet, "/api/secret", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protectedRouter(issuer, staticLoader(user)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthNeverRejects(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	r := gin.New()
	r.GET("/page", OptionalAuth(issuer, staticLoader(nil)), func(c *gin.Context) {
		_, loggedIn := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"loggedIn": loggedIn})
	})

	for _, tok := range []string{"", "garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/page", nil)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "false")
	}
}

func TestOptionalAuthAttachesValidUser(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	user := &models.User{ID: testUserID, Email: "a@x.com"}
	token, err := issuer.Sign(testUserID.Hex())
	require.NoError(t, err)

	r := gin.New()
	r.GET("/page", OptionalAuth(issuer, staticLoader(user)), func(c *gin.Context) {
		_, loggedIn := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"loggedIn": loggedIn})
	})

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "true")
}

func TestRestrictTo(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	admin := &models.User{ID: testUserID, Role: models.RoleAdmin}
	guide := &models.User{ID: testUserID, Role: models.RoleGuide}

	for _, tc := range []struct {
		user *models.User
		want int
	}{
		{admin, http.StatusOK},
		{guide, http.StatusForbidden},
	} {
		token, err := issuer.Sign(testUserID.Hex())
		require.NoError(t, err)

		r := gin.New()
		r.Use(apperror.Handler(logrus.New(), true))
		r.DELETE("/api/tours/:id",
			Protect(issuer, staticLoader(tc.user)),
			RestrictTo(models.RoleAdmin, models.RoleLeadGuide),
			func(c *gin.Context) { c.Status(http.StatusOK) },
		)

		req := httptest.NewRequest(http.MethodDelete, "/api/tours/1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, tc.want, w.Code, tc.user.Role)
	}
}
