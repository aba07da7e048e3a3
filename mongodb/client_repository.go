package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/authstore/domain"
)

// ClientRepository implements the registered client catalog using MongoDB.
type ClientRepository struct {
	coll *mongo.Collection
}

// NewClientRepository creates the repository and ensures a unique index on
// the OAuth client identifier.
func NewClientRepository(ctx context.Context, db *mongo.Database) (*ClientRepository, error) {
	repo := &ClientRepository{
		coll: db.Collection(ClientsCollection),
	}

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "client_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client indexes: %w", err)
	}

	return repo, nil
}

// CreateClient registers a new client catalog entry.
func (r *ClientRepository) CreateClient(ctx context.Context, client *domain.RegisteredClient) error {
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, client); err != nil {
		return fmt.Errorf("failed to create registered client: %w", err)
	}
	return nil
}

// GetClient implements domain.RegisteredClientRepository.
func (r *ClientRepository) GetClient(ctx context.Context, id string) (*domain.RegisteredClient, error) {
	var client domain.RegisteredClient
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRegisteredClientNotFound, id)
		}
		return nil, fmt.Errorf("failed to retrieve registered client: %w", err)
	}
	return &client, nil
}

// DeleteClient removes a client catalog entry.
func (r *ClientRepository) DeleteClient(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete registered client: %w", err)
	}
	return nil
}
