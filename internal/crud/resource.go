// Package crud implements the generic resource handlers shared by every
// collection: list with the query builder, get-one with optional populate,
// create, partial update and delete. Resource-specific behavior is injected
// through small hook functions instead of being attached to the data types.
package crud

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/query"
)

// Lookup joins referenced documents into a get-one response.
type Lookup struct {
	From         string
	LocalField   string
	ForeignField string
	As           string

	// Project is applied to the joined documents before they are embedded.
	// Joined documents bypass the typed models' json tags, so collections
	// holding fields that must never reach a response set exclusions here.
	Project bson.M
}

// Resource binds the generic handlers to one collection.
type Resource[T any] struct {
	Col  *mongo.Collection
	Name string // plural, used as the response key

	// Scope returns standing constraints merged into every read: parent
	// route identifiers, soft-delete exclusion, secret flags. Optional.
	Scope func(c *gin.Context) bson.M

	// Populate lists joins applied by GetOne. Optional.
	Populate []Lookup

	// Validate runs before Create and after merging an Update patch.
	Validate func(doc *T) error

	// OnCreate fills defaults from the route or the authenticated user
	// before validation. Optional.
	OnCreate func(c *gin.Context, doc *T) error

	// Sanitize strips or rejects client-controlled fields from an update
	// patch. Optional.
	Sanitize func(c *gin.Context, patch map[string]any) error

	// AfterWrite runs synchronously after any successful create, update or
	// delete, before the response is sent. Optional.
	AfterWrite func(ctx context.Context, doc *T) error
}

// List applies the query builder on top of the resource scope and returns
// count plus items.
func (r *Resource[T]) List(c *gin.Context) {
	features := query.New(c.Request.URL.Query()).
		Filter().
		Sort().
		Select().
		Paginate()

	filter := features.FilterDoc()
	for k, v := range r.scope(c) {
		filter[k] = v
	}

	ctx := c.Request.Context()
	cursor, err := r.Col.Find(ctx, filter, features.FindOptions())
	if err != nil {
		r.fail(c, err)
		return
	}
	items := make([]T, 0)
	if err := cursor.All(ctx, &items); err != nil {
		r.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(items),
		"data":    gin.H{r.Name: items},
	})
}

// GetOne looks a document up by id, joining referenced collections when
// the resource declares populate lookups.
func (r *Resource[T]) GetOne(c *gin.Context) {
	id, err := r.objectID(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	filter := r.scope(c)
	filter["_id"] = id
	ctx := c.Request.Context()

	if len(r.Populate) > 0 {
		doc, err := r.getPopulated(ctx, filter)
		if err != nil {
			r.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{r.Name: doc}})
		return
	}

	var doc T
	if err := r.Col.FindOne(ctx, filter).Decode(&doc); err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{r.Name: doc}})
}

// Create validates and inserts, returning the document with its generated
// identifier.
func (r *Resource[T]) Create(c *gin.Context) {
	var doc T
	if err := c.ShouldBindJSON(&doc); err != nil {
		r.fail(c, apperror.BadRequest("invalid request body: %v", err))
		return
	}
	if r.OnCreate != nil {
		if err := r.OnCreate(c, &doc); err != nil {
			r.fail(c, err)
			return
		}
	}
	if r.Validate != nil {
		if err := r.Validate(&doc); err != nil {
			r.fail(c, apperror.BadRequest("%v", err))
			return
		}
	}

	ctx := c.Request.Context()
	res, err := r.Col.InsertOne(ctx, doc)
	if err != nil {
		r.fail(c, err)
		return
	}
	if err := r.Col.FindOne(ctx, bson.M{"_id": res.InsertedID}).Decode(&doc); err != nil {
		r.fail(c, err)
		return
	}
	if err := r.runAfterWrite(ctx, &doc); err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": gin.H{r.Name: doc}})
}

// Update applies a partial patch: the existing document is loaded, the
// patch merged over it, validation re-run, and the merged document written
// back.
func (r *Resource[T]) Update(c *gin.Context) {
	id, err := r.objectID(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	patch := map[string]any{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		r.fail(c, apperror.BadRequest("invalid request body: %v", err))
		return
	}
	if r.Sanitize != nil {
		if err := r.Sanitize(c, patch); err != nil {
			r.fail(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	filter := r.scope(c)
	filter["_id"] = id

	var doc T
	if err := r.Col.FindOne(ctx, filter).Decode(&doc); err != nil {
		r.fail(c, err)
		return
	}
	if err := mergePatch(&doc, patch); err != nil {
		r.fail(c, apperror.BadRequest("invalid request body: %v", err))
		return
	}
	if r.Validate != nil {
		if err := r.Validate(&doc); err != nil {
			r.fail(c, apperror.BadRequest("%v", err))
			return
		}
	}
	if _, err := r.Col.ReplaceOne(ctx, bson.M{"_id": id}, doc); err != nil {
		r.fail(c, err)
		return
	}
	if err := r.runAfterWrite(ctx, &doc); err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{r.Name: doc}})
}

// Delete removes a document by id, returning 204 on success.
func (r *Resource[T]) Delete(c *gin.Context) {
	id, err := r.objectID(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	filter := r.scope(c)
	filter["_id"] = id

	var doc T
	if err := r.Col.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		r.fail(c, err)
		return
	}
	if err := r.runAfterWrite(ctx, &doc); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Resource[T]) scope(c *gin.Context) bson.M {
	if r.Scope == nil {
		return bson.M{}
	}
	scoped := r.Scope(c)
	if scoped == nil {
		return bson.M{}
	}
	return scoped
}

func (r *Resource[T]) runAfterWrite(ctx context.Context, doc *T) error {
	if r.AfterWrite == nil {
		return nil
	}
	return r.AfterWrite(ctx, doc)
}

func (r *Resource[T]) getPopulated(ctx context.Context, filter bson.M) (bson.M, error) {
	cursor, err := r.Col.Aggregate(ctx, populatePipeline(filter, r.Populate))
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return docs[0], nil
}

// populatePipeline builds the match-then-join aggregation for a populated
// read. Lookups carrying a projection use the pipeline form so the joined
// documents are trimmed inside the database.
func populatePipeline(filter bson.M, lookups []Lookup) mongo.Pipeline {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: filter}}}
	for _, l := range lookups {
		spec := bson.M{
			"from":         l.From,
			"localField":   l.LocalField,
			"foreignField": l.ForeignField,
			"as":           l.As,
		}
		if len(l.Project) > 0 {
			spec["pipeline"] = mongo.Pipeline{bson.D{{Key: "$project", Value: l.Project}}}
		}
		pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: spec}})
	}
	return pipeline
}

func (r *Resource[T]) objectID(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, apperror.BadRequest("invalid ID %q", c.Param("id"))
	}
	return id, nil
}

func (r *Resource[T]) fail(c *gin.Context, err error) {
	c.Error(apperror.Translate(err)) //nolint:errcheck
	c.Abort()
}

// mergePatch overlays a JSON patch onto an existing document.
func mergePatch[T any](doc *T, patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, doc)
}
