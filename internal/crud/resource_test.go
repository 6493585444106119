package crud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atlastours/atlas-api/internal/models"
)

func TestMergePatchKeepsUnpatchedFields(t *testing.T) {
	doc := models.Tour{Name: "The Forest Hiker Trip", Price: 397, Duration: 5}

	err := mergePatch(&doc, map[string]any{"price": 450.0})
	require.NoError(t, err)

	assert.Equal(t, "The Forest Hiker Trip", doc.Name)
	assert.Equal(t, 450.0, doc.Price)
	assert.Equal(t, 5, doc.Duration)
}

func TestMergePatchIgnoresHiddenFields(t *testing.T) {
	doc := models.User{Name: "A", Password: "hashed"}

	// Password is json:"-", so a patch cannot reach it.
	err := mergePatch(&doc, map[string]any{"name": "B", "password": "evil"})
	require.NoError(t, err)

	assert.Equal(t, "B", doc.Name)
	assert.Equal(t, "hashed", doc.Password)
}

func TestMergePatchRejectsWrongTypes(t *testing.T) {
	doc := models.Tour{Name: "The Forest Hiker Trip"}

	err := mergePatch(&doc, map[string]any{"price": "not-a-number"})
	assert.Error(t, err)
}

func TestPopulatePipelineProjectsJoinedDocuments(t *testing.T) {
	pipeline := populatePipeline(bson.M{"_id": "x"}, []Lookup{
		{From: "reviews", LocalField: "_id", ForeignField: "tour", As: "reviews"},
		{From: "users", LocalField: "guides", ForeignField: "_id", As: "guides",
			Project: bson.M{"password": 0}},
	})

	require.Len(t, pipeline, 3)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.M{"_id": "x"}}}, pipeline[0])

	plain := pipeline[1][0].Value.(bson.M)
	assert.NotContains(t, plain, "pipeline")

	projected := pipeline[2][0].Value.(bson.M)
	require.Contains(t, projected, "pipeline")
	inner := projected["pipeline"].(mongo.Pipeline)
	require.Len(t, inner, 1)
	assert.Equal(t, bson.D{{Key: "$project", Value: bson.M{"password": 0}}}, inner[0])
}
