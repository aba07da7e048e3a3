package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/authstore/domain"
	"go.pilab.hu/authstore/mongodb/testutil"
)

func testRecord(id string) *domain.AuthorizationRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	expiry := now.Add(time.Hour)
	return &domain.AuthorizationRecord{
		ID:                 id,
		RegisteredClientID: "rc-1",
		PrincipalName:      "alice",
		GrantType:          string(domain.GrantTypeAuthorizationCode),
		Attributes:         `{"state":"st-` + id + `"}`,
		State:              "st-" + id,
		AuthorizationCode: &domain.TokenColumns{
			Value:     "code-" + id,
			IssuedAt:  &now,
			ExpiresAt: &expiry,
			Metadata:  "{}",
		},
		AccessToken: &domain.AccessTokenColumns{
			TokenColumns: domain.TokenColumns{
				Value:     "at-" + id,
				IssuedAt:  &now,
				ExpiresAt: &expiry,
				Metadata:  "{}",
			},
			TokenType: domain.TokenTypeBearer,
			Scopes:    "openid,profile",
		},
		RefreshToken: &domain.TokenColumns{
			Value:    "rt-" + id,
			IssuedAt: &now,
			Metadata: "{}",
		},
		IDToken: &domain.IDTokenColumns{
			TokenColumns: domain.TokenColumns{
				Value:     "idt-" + id,
				IssuedAt:  &now,
				ExpiresAt: &expiry,
				Metadata:  "{}",
			},
			Claims: `{"sub":"alice"}`,
		},
	}
}

func TestAuthorizationRepository_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestMongoDB(t, "test_authstore")
	defer cleanup()

	ctx := context.Background()
	repo, err := NewAuthorizationRepository(ctx, db)
	require.NoError(t, err)

	id := uuid.NewString()
	record := testRecord(id)

	t.Run("SaveAndFindByID", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, record))

		found, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, record.PrincipalName, found.PrincipalName)
		assert.Equal(t, record.Attributes, found.Attributes)
		require.NotNil(t, found.AccessToken)
		assert.Equal(t, "at-"+id, found.AccessToken.Value)
		assert.Equal(t, "openid,profile", found.AccessToken.Scopes)
		assert.WithinDuration(t, *record.AccessToken.ExpiresAt, *found.AccessToken.ExpiresAt, time.Second)
	})

	t.Run("SaveIsUpsert", func(t *testing.T) {
		updated := testRecord(id)
		updated.PrincipalName = "alice-2"
		updated.RefreshToken = nil
		require.NoError(t, repo.Save(ctx, updated))

		found, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "alice-2", found.PrincipalName)
		assert.Nil(t, found.RefreshToken, "replace must drop slots absent from the new version")
	})

	t.Run("FindByTokenEachField", func(t *testing.T) {
		cases := map[domain.TokenKind]string{
			domain.TokenKindState:             "st-" + id,
			domain.TokenKindAuthorizationCode: "code-" + id,
			domain.TokenKindAccessToken:       "at-" + id,
			domain.TokenKindIDToken:           "idt-" + id,
		}
		for kind, value := range cases {
			found, err := repo.FindByToken(ctx, value, []domain.TokenKind{kind})
			require.NoError(t, err, "kind %s", kind)
			assert.Equal(t, id, found.ID, "kind %s", kind)
		}
	})

	t.Run("FindByTokenOrQuery", func(t *testing.T) {
		kinds := []domain.TokenKind{
			domain.TokenKindState,
			domain.TokenKindAuthorizationCode,
			domain.TokenKindAccessToken,
			domain.TokenKindRefreshToken,
		}
		found, err := repo.FindByToken(ctx, "at-"+id, kinds)
		require.NoError(t, err)
		assert.Equal(t, id, found.ID)

		_, err = repo.FindByToken(ctx, "idt-"+id, kinds)
		assert.ErrorIs(t, err, domain.ErrAuthorizationNotFound,
			"the id token field is not part of the bearer search set")
	})

	t.Run("DuplicateTokenValueRejected", func(t *testing.T) {
		dup := testRecord(uuid.NewString())
		dup.AccessToken.Value = "at-" + id // collides with the saved record
		err := repo.Save(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDuplicateTokenValue)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, repo.DeleteByID(ctx, id))
		require.NoError(t, repo.DeleteByID(ctx, id))

		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrAuthorizationNotFound)
	})
}

func TestClientRepository_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestMongoDB(t, "test_authstore_clients")
	defer cleanup()

	ctx := context.Background()
	repo, err := NewClientRepository(ctx, db)
	require.NoError(t, err)

	client := &domain.RegisteredClient{
		ID:           uuid.NewString(),
		ClientID:     "client-" + uuid.NewString(),
		Name:         "Integration Client",
		RedirectURIs: []string{"https://client.example/cb"},
		Scopes:       []string{"openid"},
		GrantTypes:   []string{string(domain.GrantTypeAuthorizationCode)},
	}
	require.NoError(t, repo.CreateClient(ctx, client))

	found, err := repo.GetClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, client.ClientID, found.ClientID)
	assert.Equal(t, client.RedirectURIs, found.RedirectURIs)

	_, err = repo.GetClient(ctx, "rc-unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRegisteredClientNotFound)

	require.NoError(t, repo.DeleteClient(ctx, client.ID))
	_, err = repo.GetClient(ctx, client.ID)
	assert.ErrorIs(t, err, domain.ErrRegisteredClientNotFound)
}
