package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/authstore/domain"
	"go.pilab.hu/authstore/inmem"
)

func newTestStore(t *testing.T, clientIDs ...string) *AuthorizationStore {
	t.Helper()
	return NewAuthorizationStore(
		inmem.NewAuthorizationRecordStore(),
		newClientCatalog(t, clientIDs...),
	)
}

func TestAuthorizationStoreSaveAndFindByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "rc-1")

	authz := fullAuthorization("rc-1")
	require.NoError(t, s.Save(ctx, authz))

	found, err := s.FindByID(ctx, authz.ID)
	require.NoError(t, err)
	assert.Equal(t, authz.ID, found.ID)
	assert.Equal(t, authz.Tokens, found.Tokens)

	t.Run("AbsentIDIsNotFound", func(t *testing.T) {
		_, err := s.FindByID(ctx, "no-such-id")
		assert.ErrorIs(t, err, domain.ErrAuthorizationNotFound)
	})

	t.Run("SaveIsFullOverwrite", func(t *testing.T) {
		replacement := domain.NewAuthorization("rc-1")
		replacement.ID = authz.ID
		replacement.PrincipalName = "alice"
		replacement.GrantType = domain.GrantTypeRefreshToken
		replacement.WithToken(domain.TokenKindRefreshToken, &domain.Token{Value: "rt-replaced"})
		require.NoError(t, s.Save(ctx, replacement))

		found, err := s.FindByID(ctx, authz.ID)
		require.NoError(t, err)
		assert.Nil(t, found.Token(domain.TokenKindAccessToken), "previous slots must not survive an overwrite")
		require.NotNil(t, found.Token(domain.TokenKindRefreshToken))
		assert.Equal(t, "rt-replaced", found.Token(domain.TokenKindRefreshToken).Value)
	})
}

func TestAuthorizationStoreFindByToken(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "rc-1", "rc-2")

	a := fullAuthorization("rc-1")
	b := fullAuthorization("rc-2")
	b.PrincipalName = "bob"
	b.Attributes["state"] = "state-of-b"
	require.NoError(t, s.Save(ctx, a))
	require.NoError(t, s.Save(ctx, b))

	t.Run("HintedLookupPerKind", func(t *testing.T) {
		for _, kind := range []domain.TokenKind{
			domain.TokenKindAuthorizationCode,
			domain.TokenKindAccessToken,
			domain.TokenKindRefreshToken,
			domain.TokenKindIDToken,
		} {
			found, err := s.FindByToken(ctx, a.Token(kind).Value, kind)
			require.NoError(t, err, "kind %s", kind)
			assert.Equal(t, a.ID, found.ID, "kind %s", kind)
		}
	})

	t.Run("HintedStateLookup", func(t *testing.T) {
		found, err := s.FindByToken(ctx, "state-of-b", domain.TokenKindState)
		require.NoError(t, err)
		assert.Equal(t, b.ID, found.ID)
	})

	t.Run("UniqueValuesDisambiguate", func(t *testing.T) {
		found, err := s.FindByToken(ctx, a.Token(domain.TokenKindAccessToken).Value, domain.TokenKindAccessToken)
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
		assert.NotEqual(t, b.ID, found.ID)
	})

	t.Run("NoHintSearchesBearerFields", func(t *testing.T) {
		found, err := s.FindByToken(ctx, a.Token(domain.TokenKindRefreshToken).Value, "")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)

		found, err = s.FindByToken(ctx, b.State(), "")
		require.NoError(t, err)
		assert.Equal(t, b.ID, found.ID)
	})

	t.Run("WrongHintMisses", func(t *testing.T) {
		_, err := s.FindByToken(ctx, a.Token(domain.TokenKindAccessToken).Value, domain.TokenKindRefreshToken)
		assert.ErrorIs(t, err, domain.ErrAuthorizationNotFound)
	})

	t.Run("UnknownHintIsAbsentNotError", func(t *testing.T) {
		_, err := s.FindByToken(ctx, a.Token(domain.TokenKindAccessToken).Value, "device_code")
		assert.ErrorIs(t, err, domain.ErrAuthorizationNotFound)
	})

	t.Run("EmptyValueNeverMatches", func(t *testing.T) {
		_, err := s.FindByToken(ctx, "", "")
		assert.ErrorIs(t, err, domain.ErrAuthorizationNotFound)
	})
}

func TestAuthorizationStoreIDTokenExclusion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "rc-1")

	authz := domain.NewAuthorization("rc-1")
	authz.PrincipalName = "alice"
	authz.GrantType = domain.GrantTypeAuthorizationCode
	idTokenValue := "idt-" + uuid.NewString()
	authz.WithToken(domain.TokenKindIDToken, &domain.Token{
		Value:  idTokenValue,
		Claims: map[string]any{"sub": "alice"},
	})
	require.NoError(t, s.Save(ctx, authz))

	_, err := s.FindByToken(ctx, idTokenValue, "")
	assert.ErrorIs(t, err, domain.ErrAuthorizationNotFound,
		"id tokens are not bearer credentials and must be excluded from the hint-omitted search")

	found, err := s.FindByToken(ctx, idTokenValue, domain.TokenKindIDToken)
	require.NoError(t, err)
	assert.Equal(t, authz.ID, found.ID)
}

func TestAuthorizationStoreRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "rc-1")

	authz := fullAuthorization("rc-1")
	require.NoError(t, s.Save(ctx, authz))

	require.NoError(t, s.Remove(ctx, authz))
	require.NoError(t, s.Remove(ctx, authz), "removing an already removed id must not fail")

	_, err := s.FindByID(ctx, authz.ID)
	assert.ErrorIs(t, err, domain.ErrAuthorizationNotFound)
}

func TestAuthorizationStoreClientNotFoundPropagates(t *testing.T) {
	ctx := context.Background()
	records := inmem.NewAuthorizationRecordStore()
	catalog := newClientCatalog(t) // empty: no client ever registered
	s := NewAuthorizationStore(records, catalog)

	authz := domain.NewAuthorization("rc-missing")
	authz.PrincipalName = "alice"
	authz.GrantType = domain.GrantTypeAuthorizationCode
	require.NoError(t, s.Save(ctx, authz), "save does not resolve the client")

	_, err := s.FindByID(ctx, authz.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRegisteredClientNotFound)
	assert.NotErrorIs(t, err, domain.ErrAuthorizationNotFound)
}
