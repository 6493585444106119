package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/config"
	"github.com/atlastours/atlas-api/internal/models"
	"github.com/atlastours/atlas-api/internal/services/images"
	"github.com/atlastours/atlas-api/internal/services/mail"
	"github.com/atlastours/atlas-api/internal/services/payments"
	"github.com/atlastours/atlas-api/internal/services/ratings"
	"github.com/atlastours/atlas-api/internal/utils"
)

// Handler carries the database plus every outbound service the routes use.
type Handler struct {
	DB       *mongo.Database
	Cfg      *config.Config
	Log      *logrus.Logger
	Tokens   *utils.TokenIssuer
	Mailer   *mail.Mailer
	Payments *payments.Client
	Images   *images.Store
	Ratings  *ratings.Service
}

func New(db *mongo.Database, cfg *config.Config, log *logrus.Logger, mailer *mail.Mailer, pay *payments.Client) *Handler {
	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Log:      log,
		Tokens:   utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn),
		Mailer:   mailer,
		Payments: pay,
		Images:   images.NewStore("public/img"),
		Ratings:  ratings.New(db),
	}
}

func (h *Handler) users() *mongo.Collection    { return h.DB.Collection("users") }
func (h *Handler) tours() *mongo.Collection    { return h.DB.Collection("tours") }
func (h *Handler) reviews() *mongo.Collection  { return h.DB.Collection("reviews") }
func (h *Handler) bookings() *mongo.Collection { return h.DB.Collection("bookings") }

// activeUsers is the standing filter excluding soft-deactivated accounts
// from every default read.
func activeUsers() bson.M {
	return bson.M{"active": bson.M{"$ne": false}}
}

// userLookupProjection strips stored credential material from user documents
// joined into other resources. Joined documents are raw bson, so the typed
// model's hidden-field tags never apply to them.
var userLookupProjection = bson.M{
	"password":             0,
	"passwordChangedAt":    0,
	"passwordResetToken":   0,
	"passwordResetExpires": 0,
}

// LoadActiveUser resolves a token subject to a live, non-deactivated user.
// It is the UserLoader behind the auth guards.
func (h *Handler) LoadActiveUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	filter := activeUsers()
	filter["_id"] = id
	var user models.User
	if err := h.users().FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// fail reports an error to the central translation middleware.
func (h *Handler) fail(c *gin.Context, err error) {
	c.Error(apperror.Translate(err)) //nolint:errcheck
	c.Abort()
}

// sendToken issues a session token, sets the http-only cookie and writes
// the standard auth response without the password field.
func (h *Handler) sendToken(c *gin.Context, user *models.User, status int) {
	token, err := h.Tokens.Sign(user.ID.Hex())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		"jwt", token,
		int(h.Cfg.CookieMaxAge.Seconds()),
		"/", "",
		h.Cfg.CookieSecure,
		true,
	)

	user.Password = ""
	c.JSON(status, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": user},
	})
}

// baseURL reconstructs the externally visible origin of the request.
func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
