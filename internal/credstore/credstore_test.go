package credstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"todosync/internal/kvstore"
	"todosync/internal/logging"
	"todosync/internal/service"
)

func newStore(t *testing.T) (*Store, *kvstore.MemStore) {
	t.Helper()
	kv := kvstore.NewMemStore()
	return New(kv, logging.Discard()), kv
}

func TestToken_Missing(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, service.ErrAuth)
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestToken_Corrupt(t *testing.T) {
	s, kv := newStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, kvstore.KeyAccessToken, "not json"))

	_, err := s.Token(ctx)
	assert.ErrorIs(t, err, service.ErrAuth)
}

func TestSaveToken_RoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveToken(ctx, &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}))

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)

	at, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at", at)
}

func TestSaveToken_RejectsEmpty(t *testing.T) {
	s, _ := newStore(t)
	err := s.SaveToken(context.Background(), &oauth2.Token{})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestProfile(t *testing.T) {
	s, kv := newStore(t)
	ctx := context.Background()

	_, ok, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := service.Profile{ID: "u1", Name: "U1", Email: "u1@x.com"}
	require.NoError(t, s.SaveProfile(ctx, want))
	got, ok, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	// Corrupt profile is dropped.
	require.NoError(t, kv.Set(ctx, kvstore.KeyUserInfo, "{"))
	_, ok, err = s.Profile(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = kv.Get(ctx, kvstore.KeyUserInfo)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestNonce(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	ok, err := s.ConsumeNonce(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok, "no nonce stored")

	require.NoError(t, s.SaveNonce(ctx, "abc"))
	ok, err = s.ConsumeNonce(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	// Nonces are single use.
	ok, err = s.ConsumeNonce(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveNonce(ctx, "abc"))
	ok, err = s.ConsumeNonce(ctx, "xyz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	s, kv := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, service.Credential{
		Token:   &oauth2.Token{AccessToken: "at"},
		Profile: service.Profile{ID: "u1"},
	}))
	require.NoError(t, s.SaveNonce(ctx, "n"))
	require.NoError(t, kv.Set(ctx, kvstore.KeyDefaultListID, "list"))

	require.NoError(t, s.Clear(ctx))

	_, err := s.Credential(ctx)
	assert.ErrorIs(t, err, service.ErrAuth)
	assert.Equal(t, 1, kv.Len(), "only the list handle should remain")
}

func TestTokenSource_ReadsLatest(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	ts := s.TokenSource(ctx)

	_, err := ts.Token()
	assert.ErrorIs(t, err, service.ErrAuth)

	require.NoError(t, s.SaveToken(ctx, &oauth2.Token{AccessToken: "one"}))
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "one", tok.AccessToken)

	require.NoError(t, s.SaveToken(ctx, &oauth2.Token{AccessToken: "two"}))
	tok, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "two", tok.AccessToken)
}
