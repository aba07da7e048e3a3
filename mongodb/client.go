// Package mongodb implements the authorization record repository and the
// registered client catalog on MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

const (
	AuthorizationsCollection = "oauth_authorizations" // Flat authorization records
	ClientsCollection        = "oauth_clients"        // Registered client catalog
)

// Connect establishes an instrumented MongoDB client and verifies the
// connection with a ping against the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if derr := client.Disconnect(context.Background()); derr != nil {
			log.Error().Err(derr).Msg("Error disconnecting after failed ping")
		}
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, nil
}
