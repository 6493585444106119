package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/models"
	"github.com/atlastours/atlas-api/internal/utils"
)

// SessionCookie is the cookie the session token travels in when it is not
// sent as a bearer header.
const SessionCookie = "jwt"

const contextUserKey = "currentUser"

// UserLoader resolves a user id from a verified token to a live account.
type UserLoader func(ctx context.Context, id primitive.ObjectID) (*models.User, error)

// SetCurrentUser attaches a resolved user to the request context.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(contextUserKey, user)
}

// CurrentUser returns the user attached by Protect or OptionalAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// Protect is the hard guard: it fails closed when the token is absent,
// invalid, expired, issued before the user's last password change, or
// references a user that no longer exists. On success the resolved user is
// attached to the request context.
func Protect(issuer *utils.TokenIssuer, load UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolveUser(c, issuer, load)
		if err != nil {
			c.Error(err) //nolint:errcheck
			c.Abort()
			return
		}
		SetCurrentUser(c, user)
		c.Next()
	}
}

// OptionalAuth is the soft guard: same resolution as Protect, but absence
// or invalidity simply proceeds without an attached user. Used for pages
// that render differently when logged in.
func OptionalAuth(issuer *utils.TokenIssuer, load UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := resolveUser(c, issuer, load); err == nil {
			SetCurrentUser(c, user)
		}
		c.Next()
	}
}

// RestrictTo rejects with a forbidden error unless the attached user's role
// is in the allow-list. It must run after Protect.
func RestrictTo(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Error(apperror.Unauthorized("you are not logged in, please log in to get access")) //nolint:errcheck
			c.Abort()
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.Error(apperror.Forbidden("you do not have permission to perform this action")) //nolint:errcheck
		c.Abort()
	}
}

func resolveUser(c *gin.Context, issuer *utils.TokenIssuer, load UserLoader) (*models.User, error) {
	token := extractToken(c)
	if token == "" {
		return nil, apperror.Unauthorized("you are not logged in, please log in to get access")
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		return nil, apperror.Translate(err)
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, apperror.Unauthorized("invalid token, please log in again")
	}

	user, err := load(c.Request.Context(), id)
	if err != nil || user == nil {
		return nil, apperror.Unauthorized("the user belonging to this token no longer exists")
	}
	if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, apperror.Unauthorized("password was changed recently, please log in again")
	}
	return user, nil
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}
