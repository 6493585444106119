package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/crud"
	"github.com/atlastours/atlas-api/internal/models"
)

// Earth radii used to convert a distance to a sphere radius in radians.
const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
)

func (h *Handler) tourResource() *crud.Resource[models.Tour] {
	return &crud.Resource[models.Tour]{
		Col:  h.tours(),
		Name: "tours",
		Scope: func(c *gin.Context) bson.M {
			return bson.M{"secretTour": bson.M{"$ne": true}}
		},
		Populate: []crud.Lookup{
			{From: "reviews", LocalField: "_id", ForeignField: "tour", As: "reviews"},
			{From: "users", LocalField: "guides", ForeignField: "_id", As: "guides",
				Project: userLookupProjection},
		},
		Validate: func(t *models.Tour) error { return t.Validate() },
		OnCreate: func(c *gin.Context, t *models.Tour) error {
			t.ID = primitive.NilObjectID
			t.Slug = models.Slugify(t.Name)
			t.CreatedAt = time.Now()
			// Rating aggregates are derived values, never client-set.
			t.RatingsAverage = models.DefaultRatingsAverage
			t.RatingsQuantity = 0
			return nil
		},
		Sanitize: func(c *gin.Context, patch map[string]any) error {
			delete(patch, "ratingsAverage")
			delete(patch, "ratingsQuantity")
			delete(patch, "slug")
			delete(patch, "createdAt")
			delete(patch, "id")
			if name, ok := patch["name"].(string); ok {
				patch["slug"] = models.Slugify(name)
			}
			return nil
		},
	}
}

// AliasTopTours prefills the query for the five best cheap tours before the
// generic list runs.
func (h *Handler) AliasTopTours(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	c.Request.URL.RawQuery = q.Encode()
	h.tourResource().List(c)
}

// TourStats groups tours by difficulty with rating and price aggregates.
func (h *Handler) TourStats(c *gin.Context) {
	ctx := c.Request.Context()
	cursor, err := h.tours().Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"ratingsAverage": bson.M{"$gte": 4.5}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	var stats []bson.M
	if err := cursor.All(ctx, &stats); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"stats": stats}})
}

// MonthlyPlan counts tour starts per month for a year, busiest month first.
func (h *Handler) MonthlyPlan(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		h.fail(c, apperror.BadRequest("invalid year %q", c.Param("year")))
		return
	}
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC)

	ctx := c.Request.Context()
	cursor, err := h.tours().Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$unwind", Value: "$startDates"}},
		bson.D{{Key: "$match", Value: bson.M{"startDates": bson.M{"$gte": from, "$lte": to}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		bson.D{{Key: "$project", Value: bson.M{"_id": 0}}},
		bson.D{{Key: "$sort", Value: bson.M{"numTourStarts": -1}}},
		bson.D{{Key: "$limit", Value: 12}},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	var plan []bson.M
	if err := cursor.All(ctx, &plan); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"plan": plan}})
}

// ToursWithin finds tours whose start location lies inside a sphere of the
// given distance around a center point.
// GET /tours-within/:distance/center/:latlng/unit/:unit
func (h *Handler) ToursWithin(c *gin.Context) {
	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil {
		h.fail(c, apperror.BadRequest("invalid distance %q", c.Param("distance")))
		return
	}
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		h.fail(c, err)
		return
	}
	radius := sphereRadius(distance, c.Param("unit"))

	ctx := c.Request.Context()
	cursor, err := h.tours().Find(ctx, bson.M{
		"secretTour": bson.M{"$ne": true},
		"startLocation": bson.M{
			"$geoWithin": bson.M{"$centerSphere": bson.A{bson.A{lng, lat}, radius}},
		},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	tours := make([]models.Tour, 0)
	if err := cursor.All(ctx, &tours); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(tours),
		"data":    gin.H{"tours": tours},
	})
}

// TourDistances computes the distance from a point to every tour start
// location, nearest first.
// GET /distances/:latlng/unit/:unit
func (h *Handler) TourDistances(c *gin.Context) {
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	cursor, err := h.tours().Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$geoNear", Value: bson.M{
			"near":               bson.M{"type": "Point", "coordinates": bson.A{lng, lat}},
			"distanceField":      "distance",
			"distanceMultiplier": distanceMultiplier(c.Param("unit")),
		}}},
		bson.D{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	var distances []bson.M
	if err := cursor.All(ctx, &distances); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"distances": distances}})
}

// UpdateTour handles both JSON patches and multipart forms carrying new
// tour images. Images are resized and written before the record updates,
// so a stored reference always points at an existing file.
func (h *Handler) UpdateTour(c *gin.Context) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		h.tourResource().Update(c)
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.fail(c, apperror.BadRequest("invalid ID %q", c.Param("id")))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.fail(c, apperror.BadRequest("invalid multipart form"))
		return
	}

	set := bson.M{}
	if covers := form.File["imageCover"]; len(covers) > 0 {
		src, err := covers[0].Open()
		if err != nil {
			h.fail(c, err)
			return
		}
		name, err := h.Images.SaveTourImage(src, id.Hex(), "cover")
		src.Close()
		if err != nil {
			h.fail(c, apperror.BadRequest("%v", err))
			return
		}
		set["imageCover"] = name
	}
	if files := form.File["images"]; len(files) > 0 {
		if len(files) > 3 {
			files = files[:3]
		}
		names := make([]string, 0, len(files))
		for i, file := range files {
			src, err := file.Open()
			if err != nil {
				h.fail(c, err)
				return
			}
			name, err := h.Images.SaveTourImage(src, id.Hex(), strconv.Itoa(i+1))
			src.Close()
			if err != nil {
				h.fail(c, apperror.BadRequest("%v", err))
				return
			}
			names = append(names, name)
		}
		set["images"] = names
	}
	if len(set) == 0 {
		h.fail(c, apperror.BadRequest("no images provided"))
		return
	}

	ctx := c.Request.Context()
	var tour models.Tour
	err = h.tours().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}).Decode(&tour)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.tours().FindOne(ctx, bson.M{"_id": id}).Decode(&tour); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"tours": tour}})
}

func parseLatLng(latlng string) (lat, lng float64, err error) {
	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return 0, 0, apperror.BadRequest("please provide latitude and longitude in the format lat,lng")
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, apperror.BadRequest("please provide latitude and longitude in the format lat,lng")
	}
	return lat, lng, nil
}

// sphereRadius converts a surface distance to radians on the earth sphere.
func sphereRadius(distance float64, unit string) float64 {
	if unit == "mi" {
		return distance / earthRadiusMiles
	}
	return distance / earthRadiusKm
}

// distanceMultiplier converts geoNear meters to the requested unit.
func distanceMultiplier(unit string) float64 {
	if unit == "mi" {
		return 0.000621371
	}
	return 0.001
}
