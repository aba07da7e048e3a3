package domain

import (
	"context"
	"time"
)

// RegisteredClient is the catalog entry for a registered OAuth2 client. The
// authorization store only resolves these at read time; client registration
// and credential handling live elsewhere.
type RegisteredClient struct {
	ID           string    `bson:"_id" json:"id"`
	ClientID     string    `bson:"client_id" json:"client_id"`
	Name         string    `bson:"client_name" json:"name,omitempty"`
	RedirectURIs []string  `bson:"redirect_uris,omitempty" json:"redirect_uris,omitempty"`
	Scopes       []string  `bson:"scopes,omitempty" json:"scopes,omitempty"`
	GrantTypes   []string  `bson:"grant_types,omitempty" json:"grant_types,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at,omitempty"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at,omitempty"`
}

// RegisteredClientRepository is the external client catalog consulted while
// decoding a persisted record. A lookup miss returns an error wrapping
// ErrRegisteredClientNotFound; a dangling client reference is a hard read
// failure, never a soft miss.
type RegisteredClientRepository interface {
	GetClient(ctx context.Context, id string) (*RegisteredClient, error)
}
