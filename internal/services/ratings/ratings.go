// Package ratings recomputes the derived rating aggregates stored on a
// tour. It is an explicit step invoked by the review handlers after every
// create, update or delete, never a hidden persistence hook.
package ratings

import (
	"context"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atlastours/atlas-api/internal/models"
)

type Service struct {
	tours   *mongo.Collection
	reviews *mongo.Collection
}

func New(db *mongo.Database) *Service {
	return &Service{
		tours:   db.Collection("tours"),
		reviews: db.Collection("reviews"),
	}
}

type stats struct {
	NRating   int     `bson:"nRating"`
	AvgRating float64 `bson:"avgRating"`
}

// Recompute reads the full current review set for a tour and writes the
// count and mean back onto it. A tour with no reviews falls back to the
// default average and zero count. Reading the whole set instead of applying
// a delta keeps concurrent recomputes convergent.
func (s *Service) Recompute(ctx context.Context, tourID primitive.ObjectID) error {
	cursor, err := s.reviews.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"tour": tourID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":       "$tour",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	})
	if err != nil {
		return err
	}
	var results []stats
	if err := cursor.All(ctx, &results); err != nil {
		return err
	}

	quantity := 0
	average := models.DefaultRatingsAverage
	if len(results) > 0 {
		quantity = results[0].NRating
		average = RoundAverage(results[0].AvgRating)
	}

	_, err = s.tours.UpdateOne(ctx, bson.M{"_id": tourID}, bson.M{"$set": bson.M{
		"ratingsQuantity": quantity,
		"ratingsAverage":  average,
	}})
	return err
}

// RoundAverage rounds a mean rating to one decimal place.
func RoundAverage(avg float64) float64 {
	return math.Round(avg*10) / 10
}
