// Package redis implements the authorization record repository on Redis.
// Records are stored as JSON documents keyed by id; each searchable token
// value gets an index key pointing back at the record id so lookups stay a
// constant number of key reads.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/authstore/domain"
)

// AuthorizationRepository implements domain.AuthorizationRecordRepository on
// Redis.
type AuthorizationRepository struct {
	client *redis.Client
	prefix string
}

// NewAuthorizationRepository creates a repository storing records under the
// given key prefix.
func NewAuthorizationRepository(client *redis.Client, prefix string) *AuthorizationRepository {
	return &AuthorizationRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *AuthorizationRepository) recordKey(id string) string {
	return fmt.Sprintf("%s:authz:%s", r.prefix, id)
}

func (r *AuthorizationRepository) indexKey(kind domain.TokenKind, value string) string {
	return fmt.Sprintf("%s:authz:idx:%s:%s", r.prefix, kind, value)
}

// deleteOwnedKeyScript removes an index key only while it still points at the
// given record id, so removing one record can never destroy an index entry a
// concurrent writer has since claimed for another record.
const deleteOwnedKeyScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// Save fully replaces the record and rebuilds its index keys. Each index key
// is claimed with SETNX first, so two concurrent saves racing for the same
// token value cannot both win: the loser gets domain.ErrDuplicateTokenValue
// and its partial claims are released before anything else is written.
func (r *AuthorizationRepository) Save(ctx context.Context, record *domain.AuthorizationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization record: %w", err)
	}

	prev, err := r.FindByID(ctx, record.ID)
	if err != nil && !errors.Is(err, domain.ErrAuthorizationNotFound) {
		return err
	}

	claimed := make([]string, 0, len(domain.IndexedTokenKinds))
	for _, kind := range domain.IndexedTokenKinds {
		value := record.TokenValue(kind)
		if value == "" {
			continue
		}
		key := r.indexKey(kind, value)
		for {
			ok, err := r.client.SetNX(ctx, key, record.ID, 0).Result()
			if err != nil {
				r.releaseKeys(ctx, claimed)
				return fmt.Errorf("failed to claim token index: %w", err)
			}
			if ok {
				claimed = append(claimed, key)
				break
			}
			owner, err := r.client.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				// Holder vanished between the SETNX and the read; claim again.
				continue
			}
			if err != nil {
				r.releaseKeys(ctx, claimed)
				return fmt.Errorf("failed to check token index: %w", err)
			}
			if owner != record.ID {
				r.releaseKeys(ctx, claimed)
				return fmt.Errorf("%s %q held by authorization %s: %w",
					kind, value, owner, domain.ErrDuplicateTokenValue)
			}
			// Already ours from a previous save of this record.
			break
		}
	}

	pipe := r.client.TxPipeline()
	if prev != nil {
		// Clear index entries for token values the new version dropped.
		for _, kind := range domain.IndexedTokenKinds {
			if value := prev.TokenValue(kind); value != "" && value != record.TokenValue(kind) {
				pipe.Eval(ctx, deleteOwnedKeyScript, []string{r.indexKey(kind, value)}, record.ID)
			}
		}
	}
	pipe.Set(ctx, r.recordKey(record.ID), data, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		r.releaseKeys(ctx, claimed)
		log.Error().Err(err).Str("id", record.ID).Msg("Error saving authorization record to Redis")
		return fmt.Errorf("failed to save authorization record: %w", err)
	}

	log.Debug().Str("id", record.ID).Str("principal", record.PrincipalName).Msg("Authorization record saved")
	return nil
}

// releaseKeys drops index keys this call claimed but could not keep.
func (r *AuthorizationRepository) releaseKeys(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		log.Error().Err(err).Strs("keys", keys).Msg("Error releasing claimed token index keys")
	}
}

// DeleteByID removes the record and its index keys. Unknown ids are a no-op.
// Index keys are removed with an ownership check so a value re-claimed by
// another record in the meantime keeps its index entry.
func (r *AuthorizationRepository) DeleteByID(ctx context.Context, id string) error {
	record, err := r.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAuthorizationNotFound) {
			return nil
		}
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.recordKey(id))
	for _, kind := range domain.IndexedTokenKinds {
		if value := record.TokenValue(kind); value != "" {
			pipe.Eval(ctx, deleteOwnedKeyScript, []string{r.indexKey(kind, value)}, id)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("id", id).Msg("Error deleting authorization record from Redis")
		return fmt.Errorf("failed to delete authorization record: %w", err)
	}
	return nil
}

// FindByID returns the record or domain.ErrAuthorizationNotFound. A stored
// document that no longer parses is surfaced as malformed data, never as a
// miss.
func (r *AuthorizationRepository) FindByID(ctx context.Context, id string) (*domain.AuthorizationRecord, error) {
	data, err := r.client.Get(ctx, r.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrAuthorizationNotFound
		}
		return nil, fmt.Errorf("failed to retrieve authorization record: %w", err)
	}

	var record domain.AuthorizationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("authorization %s: %w: %v", id, domain.ErrMalformedRecordData, err)
	}
	return &record, nil
}

// FindByToken resolves the index keys for the selected kinds with a single
// MGET, then fetches the owning record.
func (r *AuthorizationRepository) FindByToken(ctx context.Context, value string, kinds []domain.TokenKind) (*domain.AuthorizationRecord, error) {
	if value == "" || len(kinds) == 0 {
		return nil, domain.ErrAuthorizationNotFound
	}

	keys := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		keys = append(keys, r.indexKey(kind, value))
	}

	owners, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to look up authorization record by token: %w", err)
	}
	for _, owner := range owners {
		id, ok := owner.(string)
		if !ok || id == "" {
			continue
		}
		return r.FindByID(ctx, id)
	}
	return nil, domain.ErrAuthorizationNotFound
}
