package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SetupTestMongoDB connects to the MongoDB named by TEST_MONGO_URI and
// returns a database unique to this test run plus a cleanup function that
// drops it and disconnects. Tests calling it are skipped when TEST_MONGO_URI
// is unset.
func SetupTestMongoDB(t *testing.T, dbNamePrefix string) (*mongo.Database, func()) {
	t.Helper()

	mongoURI := os.Getenv("TEST_MONGO_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test: TEST_MONGO_URI not set")
	}

	dbName := fmt.Sprintf("%s_%d", dbNamePrefix, time.Now().UnixNano())

	clientOpts := options.Client().ApplyURI(mongoURI)
	clientOpts.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		t.Fatalf("Failed to create MongoDB client: %v (URI: %s)", err, mongoURI)
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err = client.Ping(pingCtx, nil); err != nil {
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelDisconnect()
		_ = client.Disconnect(disconnectCtx)
		t.Fatalf("Failed to connect to MongoDB (ping failed): %v (URI: %s)", err, mongoURI)
	}

	db := client.Database(dbName)

	cleanup := func() {
		dropCtx, cancelDrop := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelDrop()
		if err := db.Drop(dropCtx); err != nil {
			t.Logf("Warning: failed to drop database %s: %v", dbName, err)
		}

		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelDisconnect()
		if err := client.Disconnect(disconnectCtx); err != nil {
			t.Logf("Warning: failed to disconnect MongoDB client: %v", err)
		}
	}

	return db, cleanup
}
