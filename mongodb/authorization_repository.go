package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/authstore/domain"
)

// tokenValuePaths maps each searchable token kind to the BSON path carrying
// its value. Every path gets a unique sparse index so lookups stay equality
// scans and the token-value uniqueness invariant is enforced at write time.
var tokenValuePaths = map[domain.TokenKind]string{
	domain.TokenKindState:             "state",
	domain.TokenKindAuthorizationCode: "authorization_code.value",
	domain.TokenKindAccessToken:       "access_token.value",
	domain.TokenKindRefreshToken:      "refresh_token.value",
	domain.TokenKindIDToken:           "oidc_id_token.value",
}

// AuthorizationRepository implements domain.AuthorizationRecordRepository
// using MongoDB.
type AuthorizationRepository struct {
	coll *mongo.Collection
}

// NewAuthorizationRepository creates the repository and ensures the unique
// sparse indexes on the searchable token value fields.
func NewAuthorizationRepository(ctx context.Context, db *mongo.Database) (*AuthorizationRepository, error) {
	repo := &AuthorizationRepository{
		coll: db.Collection(AuthorizationsCollection),
	}

	indexes := make([]mongo.IndexModel, 0, len(domain.IndexedTokenKinds))
	for _, kind := range domain.IndexedTokenKinds {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: tokenValuePaths[kind], Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		})
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create authorization indexes: %w", err)
	}

	return repo, nil
}

// Save upserts the record, fully replacing any previous version with the
// same id. A unique-index violation on a token value surfaces as
// domain.ErrDuplicateTokenValue.
func (r *AuthorizationRepository) Save(ctx context.Context, record *domain.AuthorizationRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, opts)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("authorization %s: %w", record.ID, domain.ErrDuplicateTokenValue)
		}
		log.Error().Err(err).Str("id", record.ID).Msg("Error saving authorization record")
		return fmt.Errorf("failed to save authorization record: %w", err)
	}

	log.Debug().Str("id", record.ID).Str("principal", record.PrincipalName).Msg("Authorization record saved")
	return nil
}

// DeleteByID removes the record. Deleting an id that no longer exists is a
// no-op.
func (r *AuthorizationRepository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Error deleting authorization record")
		return fmt.Errorf("failed to delete authorization record: %w", err)
	}
	if result.DeletedCount == 0 {
		log.Debug().Str("id", id).Msg("Authorization record already absent")
	}
	return nil
}

// FindByID returns the record or domain.ErrAuthorizationNotFound.
func (r *AuthorizationRepository) FindByID(ctx context.Context, id string) (*domain.AuthorizationRecord, error) {
	var record domain.AuthorizationRecord
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAuthorizationNotFound
		}
		log.Error().Err(err).Str("id", id).Msg("Error retrieving authorization record")
		return nil, fmt.Errorf("failed to retrieve authorization record: %w", err)
	}
	return &record, nil
}

// FindByToken issues a single $or equality query over the selected token
// value fields. The unique indexes guarantee at most one document matches.
func (r *AuthorizationRepository) FindByToken(ctx context.Context, value string, kinds []domain.TokenKind) (*domain.AuthorizationRecord, error) {
	clauses := make(bson.A, 0, len(kinds))
	for _, kind := range kinds {
		path, ok := tokenValuePaths[kind]
		if !ok {
			continue
		}
		clauses = append(clauses, bson.M{path: value})
	}
	if len(clauses) == 0 {
		return nil, domain.ErrAuthorizationNotFound
	}

	var record domain.AuthorizationRecord
	err := r.coll.FindOne(ctx, bson.M{"$or": clauses}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAuthorizationNotFound
		}
		log.Error().Err(err).Msg("Error looking up authorization record by token value")
		return nil, fmt.Errorf("failed to look up authorization record by token: %w", err)
	}
	return &record, nil
}

func isDuplicateKeyError(err error) bool {
	var writeException mongo.WriteException
	if errors.As(err, &writeException) {
		for _, writeError := range writeException.WriteErrors {
			if writeError.Code == 11000 || writeError.Code == 11001 {
				return true
			}
		}
	}
	return false
}
