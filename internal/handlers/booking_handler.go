package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/crud"
	"github.com/atlastours/atlas-api/internal/middleware"
	"github.com/atlastours/atlas-api/internal/models"
	"github.com/atlastours/atlas-api/internal/services/payments"
)

func (h *Handler) bookingResource() *crud.Resource[models.Booking] {
	return &crud.Resource[models.Booking]{
		Col:      h.bookings(),
		Name:     "bookings",
		Validate: func(b *models.Booking) error { return b.Validate() },
		OnCreate: func(c *gin.Context, b *models.Booking) error {
			b.ID = primitive.NilObjectID
			b.CreatedAt = time.Now()
			return nil
		},
	}
}

// CheckoutSession creates a Stripe checkout session for a tour and returns
// the provider session handle. Booking creation happens only through the
// verified webhook, never from redirect parameters.
func (h *Handler) CheckoutSession(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	tourID, err := primitive.ObjectIDFromHex(c.Param("tourId"))
	if err != nil {
		h.fail(c, apperror.BadRequest("invalid tour ID %q", c.Param("tourId")))
		return
	}
	var tour models.Tour
	if err := h.tours().FindOne(c.Request.Context(), bson.M{"_id": tourID}).Decode(&tour); err != nil {
		h.fail(c, err)
		return
	}

	origin := baseURL(c)
	sess, err := h.Payments.CreateCheckoutSession(payments.CheckoutInput{
		TourID:        tour.ID.Hex(),
		TourName:      tour.Name,
		TourSummary:   tour.Summary,
		ImageURL:      origin + "/img/tours/" + tour.ImageCover,
		CustomerEmail: user.Email,
		SuccessURL:    origin + "/my-tours?alert=booking",
		CancelURL:     origin + "/tour/" + tour.Slug,
		Price:         tour.Price,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "session": sess})
}

// StripeWebhook verifies the event signature and records the booking when a
// checkout session completes. Unverifiable requests change nothing.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, apperror.BadRequest("could not read webhook payload"))
		return
	}

	event, err := h.Payments.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.fail(c, apperror.BadRequest("webhook signature verification failed"))
		return
	}

	if string(event.Type) != payments.CheckoutCompleted {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.fail(c, apperror.BadRequest("malformed checkout session payload"))
		return
	}
	if err := h.createBookingFromSession(c, &sess); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) createBookingFromSession(c *gin.Context, sess *stripe.CheckoutSession) error {
	tourID, err := primitive.ObjectIDFromHex(sess.ClientReferenceID)
	if err != nil {
		return apperror.BadRequest("checkout session carries an invalid tour reference")
	}

	email := sess.CustomerEmail
	if email == "" && sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	var user models.User
	ctx := c.Request.Context()
	if err := h.users().FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user); err != nil {
		return apperror.BadRequest("checkout session customer is unknown")
	}

	booking := bookingFromSession(sess, tourID, user.ID)
	if err := booking.Validate(); err != nil {
		return apperror.BadRequest("%v", err)
	}
	_, err = h.bookings().InsertOne(ctx, booking)
	return ignoreDuplicate(err)
}

// bookingFromSession maps a completed checkout session onto a booking.
func bookingFromSession(sess *stripe.CheckoutSession, tour, user primitive.ObjectID) models.Booking {
	return models.Booking{
		Tour:      tour,
		User:      user,
		Price:     float64(sess.AmountTotal) / 100,
		Paid:      true,
		SessionID: sess.ID,
		CreatedAt: time.Now(),
	}
}

// ignoreDuplicate treats a unique-index violation as success. Stripe
// delivers webhook events at least once, so a redelivered event must not
// create a second booking or make the endpoint answer with an error.
func ignoreDuplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// MyBookedTours lists the tours the authenticated user has booked.
func (h *Handler) MyBookedTours(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	tours, err := h.bookedTours(c, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(tours),
		"data":    gin.H{"tours": tours},
	})
}

func (h *Handler) bookedTours(c *gin.Context, user *models.User) ([]models.Tour, error) {
	ctx := c.Request.Context()
	cursor, err := h.bookings().Find(ctx, bson.M{"user": user.ID})
	if err != nil {
		return nil, err
	}
	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.Tour)
	}
	tours := make([]models.Tour, 0)
	if len(ids) == 0 {
		return tours, nil
	}
	tourCursor, err := h.tours().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	if err := tourCursor.All(ctx, &tours); err != nil {
		return nil, err
	}
	return tours, nil
}
