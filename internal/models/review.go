package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Review    string             `bson:"review" json:"review"`
	Rating    float64            `bson:"rating" json:"rating"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Validate checks review invariants. The one-review-per-(tour,user) rule is
// enforced by a unique compound index, not here.
func (r *Review) Validate() error {
	if strings.TrimSpace(r.Review) == "" {
		return fmt.Errorf("review cannot be empty")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	if r.Tour.IsZero() {
		return fmt.Errorf("review must belong to a tour")
	}
	if r.User.IsZero() {
		return fmt.Errorf("review must belong to a user")
	}
	return nil
}
