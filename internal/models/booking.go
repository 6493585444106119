package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Booking struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Price     float64            `bson:"price" json:"price"`
	Paid      bool               `bson:"paid" json:"paid"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`

	// SessionID is the checkout session a webhook-created booking came
	// from. A unique sparse index on it keeps redelivered events no-ops.
	SessionID string `bson:"sessionId,omitempty" json:"-"`
}

func (b *Booking) Validate() error {
	if b.Tour.IsZero() {
		return fmt.Errorf("booking must belong to a tour")
	}
	if b.User.IsZero() {
		return fmt.Errorf("booking must belong to a user")
	}
	if b.Price <= 0 {
		return fmt.Errorf("booking must have a price")
	}
	return nil
}
