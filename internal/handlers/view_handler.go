package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/middleware"
	"github.com/atlastours/atlas-api/internal/models"
)

// viewData merges the page payload with the logged-in user the soft guard
// may have attached.
func viewData(c *gin.Context, data gin.H) gin.H {
	if user, ok := middleware.CurrentUser(c); ok {
		data["user"] = user
	}
	return data
}

// Overview renders the landing page with every public tour.
func (h *Handler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	cursor, err := h.tours().Find(ctx, bson.M{"secretTour": bson.M{"$ne": true}})
	if err != nil {
		h.fail(c, err)
		return
	}
	var tours []models.Tour
	if err := cursor.All(ctx, &tours); err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "overview.html", viewData(c, gin.H{
		"title": "All Tours",
		"tours": tours,
	}))
}

// TourDetail renders one tour by slug with its reviews and guides joined.
func (h *Handler) TourDetail(c *gin.Context) {
	ctx := c.Request.Context()
	cursor, err := h.tours().Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"slug": c.Param("slug"), "secretTour": bson.M{"$ne": true}}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": "reviews", "localField": "_id", "foreignField": "tour", "as": "reviews",
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": "users", "localField": "guides", "foreignField": "_id", "as": "guides",
			"pipeline": mongo.Pipeline{bson.D{{Key: "$project", Value: userLookupProjection}}},
		}}},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		h.fail(c, err)
		return
	}
	if len(docs) == 0 {
		h.fail(c, apperror.NotFound("there is no tour with that name"))
		return
	}
	tour := docs[0]
	c.HTML(http.StatusOK, "tour.html", viewData(c, gin.H{
		"title": tour["name"],
		"tour":  tour,
	}))
}

// LoginForm renders the login page.
func (h *Handler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", viewData(c, gin.H{"title": "Log into your account"}))
}

// Account renders the profile page of the authenticated user.
func (h *Handler) Account(c *gin.Context) {
	c.HTML(http.StatusOK, "account.html", viewData(c, gin.H{"title": "Your account"}))
}

// MyTours renders the tours the authenticated user has booked.
func (h *Handler) MyTours(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	tours, err := h.bookedTours(c, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "overview.html", viewData(c, gin.H{
		"title": "My Tours",
		"tours": tours,
	}))
}
