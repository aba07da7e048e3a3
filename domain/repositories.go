package domain

import "context"

// AuthorizationRecordRepository is the storage engine boundary for flat
// authorization records. Implementations must keep every searchable token
// value unique across records (see IndexedTokenKinds); a duplicate makes
// token lookup ambiguous and is store corruption, not a valid state.
type AuthorizationRecordRepository interface {
	// Save creates or fully replaces the record with the same id.
	Save(ctx context.Context, record *AuthorizationRecord) error

	// DeleteByID removes the record. Deleting an unknown id is a no-op.
	DeleteByID(ctx context.Context, id string) error

	// FindByID returns the record or ErrAuthorizationNotFound.
	FindByID(ctx context.Context, id string) (*AuthorizationRecord, error)

	// FindByToken returns the single record whose value for any of the given
	// kinds equals value, or ErrAuthorizationNotFound. Implementations issue
	// exactly one indexed query; the uniqueness invariant guarantees at most
	// one record matches.
	FindByToken(ctx context.Context, value string, kinds []TokenKind) (*AuthorizationRecord, error)
}
