package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestBookingFromSession(t *testing.T) {
	tour := primitive.NewObjectID()
	user := primitive.NewObjectID()
	sess := &stripe.CheckoutSession{ID: "cs_test_a1b2c3", AmountTotal: 49700}

	booking := bookingFromSession(sess, tour, user)

	assert.Equal(t, tour, booking.Tour)
	assert.Equal(t, user, booking.User)
	assert.Equal(t, 497.0, booking.Price)
	assert.True(t, booking.Paid)
	assert.Equal(t, "cs_test_a1b2c3", booking.SessionID)
	require.NoError(t, booking.Validate())
}

func TestIgnoreDuplicateSwallowsUniqueViolation(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: app.bookings index: sessionId_1 dup key: { sessionId: "cs_test_a1b2c3" }`,
	}}}

	assert.NoError(t, ignoreDuplicate(dup))
	assert.NoError(t, ignoreDuplicate(nil))

	boom := errors.New("socket closed")
	assert.Equal(t, boom, ignoreDuplicate(boom))
}
