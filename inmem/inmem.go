// Package inmem provides in-memory implementations of the authorization
// record repository and the registered client catalog. They back the unit
// tests and are usable as a standalone store for embedded deployments.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"go.pilab.hu/authstore/domain"
)

// AuthorizationRecordStore keeps records in a mutex-guarded map. It enforces
// the token-value uniqueness invariant on save, standing in for the unique
// indexes a database backend provides.
type AuthorizationRecordStore struct {
	mu      sync.RWMutex
	records map[string]*domain.AuthorizationRecord
}

// NewAuthorizationRecordStore creates an empty in-memory record store.
func NewAuthorizationRecordStore() *AuthorizationRecordStore {
	return &AuthorizationRecordStore{
		records: make(map[string]*domain.AuthorizationRecord),
	}
}

// Save implements domain.AuthorizationRecordRepository.
func (s *AuthorizationRecordStore) Save(_ context.Context, record *domain.AuthorizationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.records {
		if id == record.ID {
			continue
		}
		for _, kind := range domain.IndexedTokenKinds {
			value := record.TokenValue(kind)
			if value != "" && existing.TokenValue(kind) == value {
				return fmt.Errorf("%s %q held by authorization %s: %w",
					kind, value, id, domain.ErrDuplicateTokenValue)
			}
		}
	}

	s.records[record.ID] = cloneRecord(record)
	return nil
}

// DeleteByID implements domain.AuthorizationRecordRepository. Unknown ids are
// a no-op.
func (s *AuthorizationRecordStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// FindByID implements domain.AuthorizationRecordRepository.
func (s *AuthorizationRecordStore) FindByID(_ context.Context, id string) (*domain.AuthorizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrAuthorizationNotFound
	}
	return cloneRecord(record), nil
}

// FindByToken implements domain.AuthorizationRecordRepository with a single
// pass over the stored records.
func (s *AuthorizationRecordStore) FindByToken(_ context.Context, value string, kinds []domain.TokenKind) (*domain.AuthorizationRecord, error) {
	if value == "" {
		return nil, domain.ErrAuthorizationNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		for _, kind := range kinds {
			if record.TokenValue(kind) == value {
				return cloneRecord(record), nil
			}
		}
	}
	return nil, domain.ErrAuthorizationNotFound
}

// Len returns the number of stored records.
func (s *AuthorizationRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// cloneRecord copies a record so callers never share slot pointers with the
// store's own copy.
func cloneRecord(r *domain.AuthorizationRecord) *domain.AuthorizationRecord {
	c := *r
	if r.AuthorizationCode != nil {
		v := *r.AuthorizationCode
		c.AuthorizationCode = &v
	}
	if r.AccessToken != nil {
		v := *r.AccessToken
		c.AccessToken = &v
	}
	if r.RefreshToken != nil {
		v := *r.RefreshToken
		c.RefreshToken = &v
	}
	if r.IDToken != nil {
		v := *r.IDToken
		c.IDToken = &v
	}
	return &c
}

// RegisteredClientStore is a mutex-guarded in-memory client catalog.
type RegisteredClientStore struct {
	mu      sync.RWMutex
	clients map[string]*domain.RegisteredClient
}

// NewRegisteredClientStore creates an empty in-memory client catalog.
func NewRegisteredClientStore() *RegisteredClientStore {
	return &RegisteredClientStore{
		clients: make(map[string]*domain.RegisteredClient),
	}
}

// CreateClient registers a client under its id.
func (s *RegisteredClientStore) CreateClient(_ context.Context, client *domain.RegisteredClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *client
	s.clients[client.ID] = &stored
	return nil
}

// DeleteClient removes a client from the catalog.
func (s *RegisteredClientStore) DeleteClient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
	return nil
}

// GetClient implements domain.RegisteredClientRepository. Like record reads,
// client reads return a copy so callers cannot mutate the stored value.
func (s *RegisteredClientStore) GetClient(_ context.Context, id string) (*domain.RegisteredClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRegisteredClientNotFound, id)
	}
	c := *client
	return &c, nil
}
