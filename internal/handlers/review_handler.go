package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/crud"
	"github.com/atlastours/atlas-api/internal/middleware"
	"github.com/atlastours/atlas-api/internal/models"
)

// reviewResource serves reviews both top-level and nested under a tour.
// Every successful write triggers a synchronous recompute of the tour's
// rating aggregate before the response is sent.
func (h *Handler) reviewResource() *crud.Resource[models.Review] {
	return &crud.Resource[models.Review]{
		Col:  h.reviews(),
		Name: "reviews",
		Scope: func(c *gin.Context) bson.M {
			scope := bson.M{}
			if tourID := c.Param("tourId"); tourID != "" {
				if id, err := primitive.ObjectIDFromHex(tourID); err == nil {
					scope["tour"] = id
				}
			}
			// Regular users can only modify or delete their own reviews;
			// someone else's review reads as not found. Reads stay open
			// and staff roles are not constrained.
			switch c.Request.Method {
			case http.MethodPatch, http.MethodDelete:
				if user, ok := middleware.CurrentUser(c); ok && user.Role == models.RoleUser {
					scope["user"] = user.ID
				}
			}
			return scope
		},
		Validate: func(r *models.Review) error { return r.Validate() },
		OnCreate: func(c *gin.Context, r *models.Review) error {
			r.ID = primitive.NilObjectID
			r.CreatedAt = time.Now()
			// Nested route and session fill the references by default.
			if tourID := c.Param("tourId"); tourID != "" {
				id, err := primitive.ObjectIDFromHex(tourID)
				if err != nil {
					return apperror.BadRequest("invalid tour ID %q", tourID)
				}
				r.Tour = id
			}
			if user, ok := middleware.CurrentUser(c); ok {
				r.User = user.ID
			}
			return nil
		},
		Sanitize: func(c *gin.Context, patch map[string]any) error {
			// A review never moves between tours or users.
			delete(patch, "tour")
			delete(patch, "user")
			delete(patch, "id")
			delete(patch, "createdAt")
			return nil
		},
		AfterWrite: func(ctx context.Context, r *models.Review) error {
			return h.Ratings.Recompute(ctx, r.Tour)
		},
	}
}
