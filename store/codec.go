// Package store implements the authorization-record store: the codec that
// translates between the in-memory authorization aggregate and its flat
// persisted record, and the store exposing save/remove/find operations on
// top of a pluggable record repository.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.pilab.hu/authstore/domain"
)

// Codec converts between the authorization aggregate and its persisted flat
// record. It is a pure transformation and owns nothing; the client catalog
// handle is only consulted to resolve the owning client at decode time.
type Codec struct {
	clients domain.RegisteredClientRepository
}

// NewCodec creates a codec resolving clients against the given catalog.
func NewCodec(clients domain.RegisteredClientRepository) *Codec {
	return &Codec{clients: clients}
}

// Encode flattens an aggregate into its persisted record. Token kinds absent
// from the aggregate leave their slot entirely nil; partial slots are never
// produced. Encoding fails only when a metadata map cannot be serialized,
// which on a well-formed aggregate is a programming defect.
func (c *Codec) Encode(authz *domain.Authorization) (*domain.AuthorizationRecord, error) {
	attrs, err := writeMap(authz.Attributes)
	if err != nil {
		return nil, fmt.Errorf("authorization %s attributes: %w", authz.ID, err)
	}

	record := &domain.AuthorizationRecord{
		ID:                 authz.ID,
		RegisteredClientID: authz.RegisteredClientID,
		PrincipalName:      authz.PrincipalName,
		GrantType:          string(authz.GrantType),
		Attributes:         attrs,
		// Mirrored for indexed lookup; the copy in the attributes blob stays.
		State: authz.State(),
	}

	if t := authz.Token(domain.TokenKindAuthorizationCode); t != nil {
		cols, err := encodeToken(t)
		if err != nil {
			return nil, fmt.Errorf("authorization %s code metadata: %w", authz.ID, err)
		}
		record.AuthorizationCode = cols
	}

	if t := authz.Token(domain.TokenKindAccessToken); t != nil {
		cols, err := encodeToken(t)
		if err != nil {
			return nil, fmt.Errorf("authorization %s access token metadata: %w", authz.ID, err)
		}
		tokenType := t.TokenType
		if tokenType == "" {
			tokenType = domain.TokenTypeBearer
		}
		record.AccessToken = &domain.AccessTokenColumns{
			TokenColumns: *cols,
			TokenType:    tokenType,
			Scopes:       strings.Join(t.Scopes, ","),
		}
	}

	if t := authz.Token(domain.TokenKindRefreshToken); t != nil {
		cols, err := encodeToken(t)
		if err != nil {
			return nil, fmt.Errorf("authorization %s refresh token metadata: %w", authz.ID, err)
		}
		record.RefreshToken = cols
	}

	if t := authz.Token(domain.TokenKindIDToken); t != nil {
		cols, err := encodeToken(t)
		if err != nil {
			return nil, fmt.Errorf("authorization %s id token metadata: %w", authz.ID, err)
		}
		claims, err := writeMap(t.Claims)
		if err != nil {
			return nil, fmt.Errorf("authorization %s id token claims: %w", authz.ID, err)
		}
		record.IDToken = &domain.IDTokenColumns{
			TokenColumns: *cols,
			Claims:       claims,
		}
	}

	return record, nil
}

// Decode reconstructs the aggregate from a persisted record. The owning
// client must still resolve in the catalog; a miss is a hard error naming
// the dangling client id. Any unreadable stored blob fails the whole decode
// with ErrMalformedRecordData.
func (c *Codec) Decode(ctx context.Context, record *domain.AuthorizationRecord) (*domain.Authorization, error) {
	client, err := c.clients.GetClient(ctx, record.RegisteredClientID)
	if err != nil {
		return nil, fmt.Errorf("authorization %s: %w", record.ID, err)
	}

	attrs, err := parseMap(record.Attributes)
	if err != nil {
		return nil, fmt.Errorf("authorization %s attributes: %w", record.ID, err)
	}
	// Reconcile the denormalized column back into the generic mapping; the
	// dedicated column wins when both disagree.
	if record.State != "" {
		attrs[domain.AttrState] = record.State
	}

	authz := &domain.Authorization{
		ID:                 record.ID,
		RegisteredClientID: client.ID,
		PrincipalName:      record.PrincipalName,
		GrantType:          domain.ResolveGrantType(record.GrantType),
		Attributes:         attrs,
		Tokens:             make(map[domain.TokenKind]*domain.Token),
	}

	if record.AuthorizationCode != nil {
		token, err := decodeToken(record.AuthorizationCode)
		if err != nil {
			return nil, fmt.Errorf("authorization %s code metadata: %w", record.ID, err)
		}
		authz.Tokens[domain.TokenKindAuthorizationCode] = token
	}

	if record.AccessToken != nil {
		token, err := decodeToken(&record.AccessToken.TokenColumns)
		if err != nil {
			return nil, fmt.Errorf("authorization %s access token metadata: %w", record.ID, err)
		}
		token.TokenType = record.AccessToken.TokenType
		token.Scopes = splitScopes(record.AccessToken.Scopes)
		authz.Tokens[domain.TokenKindAccessToken] = token
	}

	if record.RefreshToken != nil {
		token, err := decodeToken(record.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("authorization %s refresh token metadata: %w", record.ID, err)
		}
		authz.Tokens[domain.TokenKindRefreshToken] = token
	}

	if record.IDToken != nil {
		token, err := decodeToken(&record.IDToken.TokenColumns)
		if err != nil {
			return nil, fmt.Errorf("authorization %s id token metadata: %w", record.ID, err)
		}
		token.Claims, err = parseMap(record.IDToken.Claims)
		if err != nil {
			return nil, fmt.Errorf("authorization %s id token claims: %w", record.ID, err)
		}
		authz.Tokens[domain.TokenKindIDToken] = token
	}

	return authz, nil
}

func encodeToken(t *domain.Token) (*domain.TokenColumns, error) {
	metadata, err := writeMap(t.Metadata)
	if err != nil {
		return nil, err
	}
	return &domain.TokenColumns{
		Value:     t.Value,
		IssuedAt:  timePtr(t.IssuedAt),
		ExpiresAt: timePtr(t.ExpiresAt),
		Metadata:  metadata,
	}, nil
}

func decodeToken(cols *domain.TokenColumns) (*domain.Token, error) {
	metadata, err := parseMap(cols.Metadata)
	if err != nil {
		return nil, err
	}
	return &domain.Token{
		Value:     cols.Value,
		IssuedAt:  timeVal(cols.IssuedAt),
		ExpiresAt: timeVal(cols.ExpiresAt),
		Metadata:  metadata,
	}, nil
}

// writeMap serializes a mapping to its stored text form. A nil map is stored
// as an empty object so the blob is never absent.
func writeMap(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("serialize mapping: %w", err)
	}
	return string(data), nil
}

// parseMap deserializes a stored text blob. Anything that is not a JSON
// object, including a bare null, fails with ErrMalformedRecordData.
func parseMap(data string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRecordData, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: expected an object, got null", domain.ErrMalformedRecordData)
	}
	return m, nil
}

// splitScopes splits the comma-joined scope column. An empty column yields an
// empty set, not a set holding one empty scope.
func splitScopes(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
