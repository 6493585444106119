package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atlastours/atlas-api/internal/middleware"
	"github.com/atlastours/atlas-api/internal/models"
)

func reviewScope(t *testing.T, method string, user *models.User, tourParam string) map[string]any {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(method, "/api/v1/reviews/1", nil)
	if user != nil {
		middleware.SetCurrentUser(c, user)
	}
	if tourParam != "" {
		c.Params = append(c.Params, gin.Param{Key: "tourId", Value: tourParam})
	}
	return testHandler(t).reviewResource().Scope(c)
}

func TestReviewScopeLimitsUserWritesToOwnReviews(t *testing.T) {
	owner := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}

	for _, method := range []string{http.MethodPatch, http.MethodDelete} {
		scope := reviewScope(t, method, owner, "")
		assert.Equal(t, owner.ID, scope["user"], method)
	}
}

func TestReviewScopeLeavesReadsAndStaffOpen(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	admin := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	assert.NotContains(t, reviewScope(t, http.MethodGet, user, ""), "user")
	assert.NotContains(t, reviewScope(t, http.MethodPatch, admin, ""), "user")
	assert.NotContains(t, reviewScope(t, http.MethodDelete, admin, ""), "user")
}

func TestReviewScopeCarriesTourFromNestedRoute(t *testing.T) {
	tourID := primitive.NewObjectID()

	scope := reviewScope(t, http.MethodGet, nil, tourID.Hex())
	assert.Equal(t, tourID, scope["tour"])
}
