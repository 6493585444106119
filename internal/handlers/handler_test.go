package handlers

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() { gin.SetMode(gin.TestMode) }

// testHandler builds a Handler over an unconnected client; the driver only
// dials on the first operation, so resource wiring can be inspected without
// a database.
func testHandler(t *testing.T) *Handler {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return &Handler{DB: client.Database("test")}
}
