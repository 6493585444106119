package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func build(raw string) *Features {
	values, _ := url.ParseQuery(raw)
	return New(values).Filter().Sort().Select().Paginate()
}

func TestFilterEqualityAndComparison(t *testing.T) {
	f := build("price[gte]=100&difficulty=easy&duration[lt]=10")

	assert.Equal(t, bson.M{
		"price":      bson.M{"$gte": float64(100)},
		"difficulty": "easy",
		"duration":   bson.M{"$lt": float64(10)},
	}, f.FilterDoc())
}

func TestFilterIgnoresReservedKeys(t *testing.T) {
	f := build("page=2&sort=price&limit=5&fields=name&price=400")

	assert.Equal(t, bson.M{"price": float64(400)}, f.FilterDoc())
}

func TestFilterCoercesBooleans(t *testing.T) {
	f := build("secretTour=true")

	assert.Equal(t, bson.M{"secretTour": true}, f.FilterDoc())
}

func TestFilterUnknownOperatorIsEquality(t *testing.T) {
	f := build("price[near]=7")

	assert.Equal(t, bson.M{"price[near]": float64(7)}, f.FilterDoc())
}

func TestSortDescendingList(t *testing.T) {
	f := build("sort=-price,ratingsAverage")

	assert.Equal(t, bson.D{
		{Key: "price", Value: -1},
		{Key: "ratingsAverage", Value: 1},
	}, f.sort)
}

func TestSortDefaultsToNewestFirst(t *testing.T) {
	f := build("")

	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, f.sort)
}

func TestSelectAllowList(t *testing.T) {
	f := build("fields=name,price,-summary")

	assert.Equal(t, bson.M{"name": 1, "price": 1, "summary": 0}, f.projection)
}

func TestSelectDefaultExcludesVersionField(t *testing.T) {
	f := build("")

	assert.Equal(t, bson.M{"__v": 0}, f.projection)
}

func TestPaginateDefaults(t *testing.T) {
	f := build("")

	assert.EqualValues(t, 0, f.skip)
	assert.EqualValues(t, DefaultLimit, f.limit)
}

func TestPaginateSkipTake(t *testing.T) {
	f := build("page=3&limit=10")

	assert.EqualValues(t, 20, f.skip)
	assert.EqualValues(t, 10, f.limit)
}

func TestPaginateNonNumericFallsBack(t *testing.T) {
	f := build("page=abc&limit=xyz")

	assert.EqualValues(t, 0, f.skip)
	assert.EqualValues(t, DefaultLimit, f.limit)
}

func TestPaginateClampsToFloorOfOne(t *testing.T) {
	for _, raw := range []string{"page=0&limit=0", "page=-4&limit=-2"} {
		f := build(raw)
		assert.EqualValues(t, 0, f.skip, raw)
		assert.EqualValues(t, 1, f.limit, raw)
	}
}

func TestFindOptionsCarryEverything(t *testing.T) {
	f := build("sort=-price&fields=name,price&page=2&limit=2")
	opts := f.FindOptions()

	require.NotNil(t, opts.Skip)
	require.NotNil(t, opts.Limit)
	assert.EqualValues(t, 2, *opts.Skip)
	assert.EqualValues(t, 2, *opts.Limit)
	assert.Equal(t, bson.D{{Key: "price", Value: -1}}, opts.Sort)
	assert.Equal(t, bson.M{"name": 1, "price": 1}, opts.Projection)
}
