package domain

import "time"

// TokenColumns is one persisted token slot. A record either carries the whole
// slot or omits it; partial slots are never stored.
type TokenColumns struct {
	Value     string     `bson:"value" json:"value"`
	IssuedAt  *time.Time `bson:"issued_at,omitempty" json:"issued_at,omitempty"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	Metadata  string     `bson:"metadata" json:"metadata"`
}

// AccessTokenColumns extends a token slot with the bearer token type and the
// comma-joined scope list.
type AccessTokenColumns struct {
	TokenColumns `bson:",inline"`
	TokenType    string `bson:"token_type" json:"token_type"`
	Scopes       string `bson:"scopes" json:"scopes"`
}

// IDTokenColumns extends a token slot with the serialized identity claims.
type IDTokenColumns struct {
	TokenColumns `bson:",inline"`
	Claims       string `bson:"claims" json:"claims"`
}

// AuthorizationRecord is the flat persisted shape of an authorization. The
// attribute, metadata and claims maps are stored as serialized text blobs;
// translation to and from the Authorization aggregate is the record codec's
// job, the slot layout never leaks into business logic.
type AuthorizationRecord struct {
	ID                 string `bson:"_id" json:"id"`
	RegisteredClientID string `bson:"registered_client_id" json:"registered_client_id"`
	PrincipalName      string `bson:"principal_name" json:"principal_name"`
	GrantType          string `bson:"grant_type" json:"grant_type"`
	Attributes         string `bson:"attributes" json:"attributes"`

	// State duplicates the reserved state attribute so the pending
	// authorization request can be found by indexed lookup. The copy inside
	// the attributes blob stays authoritative; this column is derived.
	State string `bson:"state,omitempty" json:"state,omitempty"`

	AuthorizationCode *TokenColumns       `bson:"authorization_code,omitempty" json:"authorization_code,omitempty"`
	AccessToken       *AccessTokenColumns `bson:"access_token,omitempty" json:"access_token,omitempty"`
	RefreshToken      *TokenColumns       `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	IDToken           *IDTokenColumns     `bson:"oidc_id_token,omitempty" json:"oidc_id_token,omitempty"`
}

// IndexedTokenKinds lists every searchable record field. Each one is backed
// by a unique equality index in the database implementations.
var IndexedTokenKinds = []TokenKind{
	TokenKindState,
	TokenKindAuthorizationCode,
	TokenKindAccessToken,
	TokenKindRefreshToken,
	TokenKindIDToken,
}

// TokenValue returns the stored value for the given searchable kind, or ""
// when the slot is absent.
func (r *AuthorizationRecord) TokenValue(kind TokenKind) string {
	switch kind {
	case TokenKindState:
		return r.State
	case TokenKindAuthorizationCode:
		if r.AuthorizationCode != nil {
			return r.AuthorizationCode.Value
		}
	case TokenKindAccessToken:
		if r.AccessToken != nil {
			return r.AccessToken.Value
		}
	case TokenKindRefreshToken:
		if r.RefreshToken != nil {
			return r.RefreshToken.Value
		}
	case TokenKindIDToken:
		if r.IDToken != nil {
			return r.IDToken.Value
		}
	}
	return ""
}
