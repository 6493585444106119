package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseLatLng(t *testing.T) {
	lat, lng, err := parseLatLng("34.111745,-118.113491")
	require.NoError(t, err)
	assert.Equal(t, 34.111745, lat)
	assert.Equal(t, -118.113491, lng)

	for _, bad := range []string{"", "34.1", "a,b", "1,2,3"} {
		_, _, err := parseLatLng(bad)
		assert.Error(t, err, bad)
	}
}

func TestSphereRadius(t *testing.T) {
	assert.InDelta(t, 233/3963.2, sphereRadius(233, "mi"), 1e-9)
	assert.InDelta(t, 233/6378.1, sphereRadius(233, "km"), 1e-9)
	// Unknown units fall back to kilometers.
	assert.InDelta(t, 233/6378.1, sphereRadius(233, ""), 1e-9)
}

func TestDistanceMultiplier(t *testing.T) {
	assert.Equal(t, 0.000621371, distanceMultiplier("mi"))
	assert.Equal(t, 0.001, distanceMultiplier("km"))
}

func TestGuidesLookupHidesCredentialFields(t *testing.T) {
	res := testHandler(t).tourResource()

	var project bson.M
	for _, l := range res.Populate {
		if l.As == "guides" {
			project = l.Project
		}
	}
	require.NotNil(t, project)

	for _, field := range []string{
		"password", "passwordChangedAt", "passwordResetToken", "passwordResetExpires",
	} {
		assert.Equal(t, 0, project[field], field)
	}
}
