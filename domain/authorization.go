package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationGrantType identifies the OAuth2 flow that produced a grant.
type AuthorizationGrantType string

const (
	GrantTypeAuthorizationCode AuthorizationGrantType = "authorization_code"
	GrantTypeClientCredentials AuthorizationGrantType = "client_credentials"
	GrantTypeRefreshToken      AuthorizationGrantType = "refresh_token"
)

// ResolveGrantType maps a stored grant-type symbol to its well-known constant.
// Symbols outside the well-known set are kept as opaque extension values
// rather than rejected.
func ResolveGrantType(value string) AuthorizationGrantType {
	switch value {
	case string(GrantTypeAuthorizationCode):
		return GrantTypeAuthorizationCode
	case string(GrantTypeClientCredentials):
		return GrantTypeClientCredentials
	case string(GrantTypeRefreshToken):
		return GrantTypeRefreshToken
	}
	return AuthorizationGrantType(value)
}

// TokenKind names one of the token slots an authorization may carry, plus the
// transient state parameter. Values follow the OAuth2 parameter names.
type TokenKind string

const (
	TokenKindState             TokenKind = "state"
	TokenKindAuthorizationCode TokenKind = "code"
	TokenKindAccessToken       TokenKind = "access_token"
	TokenKindRefreshToken      TokenKind = "refresh_token"
	TokenKindIDToken           TokenKind = "id_token"
)

// TokenTypeBearer is the only access token type records are kept for.
const TokenTypeBearer = "Bearer"

// AttrState is the reserved attribute key holding the authorization request
// state during the pending phase of the authorization code flow.
const AttrState = "state"

// MetadataInvalidated is the conventional metadata key marking a token that
// has been invalidated without the whole authorization being removed.
const MetadataInvalidated = "metadata.token.invalidated"

// Token is one populated token slot of an authorization.
type Token struct {
	Value     string         `json:"value"`
	IssuedAt  time.Time      `json:"issued_at,omitempty"`  // zero value means unknown
	ExpiresAt time.Time      `json:"expires_at,omitempty"` // zero value means non-expiring
	Metadata  map[string]any `json:"metadata,omitempty"`

	// TokenType and Scopes are populated for access tokens only.
	TokenType string   `json:"token_type,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`

	// Claims holds the decoded identity claims, populated for OIDC ID tokens
	// only. Distinct from Metadata.
	Claims map[string]any `json:"claims,omitempty"`
}

// Invalidated reports whether the token carries the invalidated metadata
// marker.
func (t *Token) Invalidated() bool {
	v, ok := t.Metadata[MetadataInvalidated].(bool)
	return ok && v
}

// Authorization is the in-memory aggregate of one OAuth2 grant's full state:
// the owning client and principal plus zero or more token slots. It is
// reconstructed fresh on every read and fully overwritten on every save; it
// is never cached.
type Authorization struct {
	ID                 string                 `json:"id"`
	RegisteredClientID string                 `json:"registered_client_id"`
	PrincipalName      string                 `json:"principal_name"`
	GrantType          AuthorizationGrantType `json:"grant_type"`
	Attributes         map[string]any         `json:"attributes"`
	Tokens             map[TokenKind]*Token   `json:"tokens,omitempty"`
}

// NewAuthorization creates an aggregate for the given client with a generated
// id and empty attribute and token maps.
func NewAuthorization(registeredClientID string) *Authorization {
	return &Authorization{
		ID:                 uuid.NewString(),
		RegisteredClientID: registeredClientID,
		Attributes:         make(map[string]any),
		Tokens:             make(map[TokenKind]*Token),
	}
}

// Token returns the populated slot for the given kind, or nil when the
// aggregate does not carry that token.
func (a *Authorization) Token(kind TokenKind) *Token {
	return a.Tokens[kind]
}

// WithToken attaches or replaces a token slot and returns the aggregate for
// chaining.
func (a *Authorization) WithToken(kind TokenKind, t *Token) *Authorization {
	if a.Tokens == nil {
		a.Tokens = make(map[TokenKind]*Token)
	}
	a.Tokens[kind] = t
	return a
}

// Attribute returns the named session attribute, or nil.
func (a *Authorization) Attribute(key string) any {
	return a.Attributes[key]
}

// State returns the reserved state attribute when present as a string.
func (a *Authorization) State() string {
	s, _ := a.Attributes[AttrState].(string)
	return s
}
