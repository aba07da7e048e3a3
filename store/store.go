package store

import (
	"context"

	"go.pilab.hu/authstore/domain"
)

// bearerSearchKinds lists the record fields consulted when a lookup arrives
// without a token kind hint. ID tokens are excluded on purpose: they are
// never presented as bearer credentials.
var bearerSearchKinds = []domain.TokenKind{
	domain.TokenKindState,
	domain.TokenKindAuthorizationCode,
	domain.TokenKindAccessToken,
	domain.TokenKindRefreshToken,
}

var knownKinds = map[domain.TokenKind]struct{}{
	domain.TokenKindState:             {},
	domain.TokenKindAuthorizationCode: {},
	domain.TokenKindAccessToken:       {},
	domain.TokenKindRefreshToken:      {},
	domain.TokenKindIDToken:           {},
}

// AuthorizationStore persists and retrieves OAuth2 authorization aggregates.
// Every operation is a single independent round trip to the record
// repository; the store keeps no in-process state and relies on the backing
// engine's own write atomicity.
type AuthorizationStore struct {
	records domain.AuthorizationRecordRepository
	codec   *Codec
}

// NewAuthorizationStore creates a store over the given record repository,
// resolving clients against the given catalog during reads.
func NewAuthorizationStore(records domain.AuthorizationRecordRepository, clients domain.RegisteredClientRepository) *AuthorizationStore {
	return &AuthorizationStore{
		records: records,
		codec:   NewCodec(clients),
	}
}

// Save encodes the aggregate and unconditionally overwrites the record with
// its id, creating it when absent.
func (s *AuthorizationStore) Save(ctx context.Context, authz *domain.Authorization) error {
	record, err := s.codec.Encode(authz)
	if err != nil {
		return err
	}
	return s.records.Save(ctx, record)
}

// Remove deletes the aggregate's record. Removing an id that was already
// removed is a no-op.
func (s *AuthorizationStore) Remove(ctx context.Context, authz *domain.Authorization) error {
	return s.records.DeleteByID(ctx, authz.ID)
}

// FindByID returns the aggregate for the given id, or
// domain.ErrAuthorizationNotFound. Decode failures propagate as hard errors.
func (s *AuthorizationStore) FindByID(ctx context.Context, id string) (*domain.Authorization, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(ctx, record)
}

// FindByToken locates the aggregate owning the given token value. An empty
// kind searches the state, authorization code, access token and refresh
// token fields; a known kind restricts the search to exactly that field. An
// unrecognized kind is an absent result, not an error: the contract is "find
// if findable", not "validate the hint".
func (s *AuthorizationStore) FindByToken(ctx context.Context, value string, kind domain.TokenKind) (*domain.Authorization, error) {
	if value == "" {
		return nil, domain.ErrAuthorizationNotFound
	}

	kinds := bearerSearchKinds
	if kind != "" {
		if _, ok := knownKinds[kind]; !ok {
			return nil, domain.ErrAuthorizationNotFound
		}
		kinds = []domain.TokenKind{kind}
	}

	record, err := s.records.FindByToken(ctx, value, kinds)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(ctx, record)
}
