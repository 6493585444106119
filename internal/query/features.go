// Package query translates an inbound query string into a constrained
// MongoDB find: filter, sort, projection and pagination, composed as a
// fluent builder. No step executes the query.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// reserved keys never become filter constraints.
var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// comparison operators passed through to the query language.
var operators = map[string]string{"gte": "$gte", "gt": "$gt", "lte": "$lte", "lt": "$lt"}

type Features struct {
	values     url.Values
	filter     bson.M
	sort       bson.D
	projection bson.M
	skip       int64
	limit      int64
}

// New starts a builder over raw query-string values. Callers chain
// Filter().Sort().Select().Paginate() and then read the results.
func New(values url.Values) *Features {
	return &Features{
		values: values,
		filter: bson.M{},
		skip:   0,
		limit:  DefaultLimit,
	}
}

// Filter turns every non-reserved key into an equality constraint, or a
// comparison constraint for keys of the form field[gte|gt|lte|lt].
func (f *Features) Filter() *Features {
	for key, vals := range f.values {
		if reserved[key] || len(vals) == 0 {
			continue
		}
		field, op, ok := splitOperator(key)
		if !ok {
			f.filter[key] = coerce(vals[0])
			continue
		}
		sub, _ := f.filter[field].(bson.M)
		if sub == nil {
			sub = bson.M{}
			f.filter[field] = sub
		}
		sub[op] = coerce(vals[0])
	}
	return f
}

// Sort parses a comma-separated field list, "-" prefix for descending.
// Default sort is newest first by creation time.
func (f *Features) Sort() *Features {
	raw := f.values.Get("sort")
	if raw == "" {
		f.sort = bson.D{{Key: "createdAt", Value: -1}}
		return f
	}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = field[1:]
		}
		f.sort = append(f.sort, bson.E{Key: field, Value: dir})
	}
	return f
}

// Select builds a projection from the comma-separated fields allow-list.
// Without one, only the legacy version field is excluded.
func (f *Features) Select() *Features {
	raw := f.values.Get("fields")
	if raw == "" {
		f.projection = bson.M{"__v": 0}
		return f
	}
	f.projection = bson.M{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.HasPrefix(field, "-") {
			f.projection[field[1:]] = 0
		} else {
			f.projection[field] = 1
		}
	}
	return f
}

// Paginate converts page and limit into a skip/take pair. Non-numeric
// values fall back to the defaults, values below one clamp to one; it
// never fails.
func (f *Features) Paginate() *Features {
	page := intOrDefault(f.values.Get("page"), DefaultPage)
	limit := intOrDefault(f.values.Get("limit"), DefaultLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	f.skip = (page - 1) * limit
	f.limit = limit
	return f
}

// FilterDoc returns the accumulated filter document.
func (f *Features) FilterDoc() bson.M { return f.filter }

// FindOptions returns the sort, projection and pagination as driver options.
func (f *Features) FindOptions() *options.FindOptions {
	opts := options.Find().SetSkip(f.skip).SetLimit(f.limit)
	if len(f.sort) > 0 {
		opts.SetSort(f.sort)
	}
	if len(f.projection) > 0 {
		opts.SetProjection(f.projection)
	}
	return opts
}

func splitOperator(key string) (field, op string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", "", false
	}
	mongoOp, known := operators[key[open+1:len(key)-1]]
	if !known {
		return "", "", false
	}
	return key[:open], mongoOp, true
}

// coerce turns a raw query value into the type Mongo should compare with:
// number, boolean, otherwise string.
func coerce(v string) any {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func intOrDefault(v string, def int64) int64 {
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
