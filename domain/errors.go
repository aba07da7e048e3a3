package domain

import "errors"

var (
	// ErrAuthorizationNotFound marks the absence of a matching record. It is
	// a normal lookup outcome, distinct from every failure below.
	ErrAuthorizationNotFound = errors.New("authorization not found")

	// ErrRegisteredClientNotFound is returned when a record references a
	// client the catalog no longer knows about.
	ErrRegisteredClientNotFound = errors.New("registered client not found")

	// ErrMalformedRecordData is returned when a persisted attribute, metadata
	// or claims blob fails to deserialize. It indicates storage corruption or
	// a schema mismatch and is never coerced to an empty map.
	ErrMalformedRecordData = errors.New("malformed authorization record data")

	// ErrDuplicateTokenValue is returned when a save would store a token
	// value already held by another record.
	ErrDuplicateTokenValue = errors.New("duplicate token value")
)
