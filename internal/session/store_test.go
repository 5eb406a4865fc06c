package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credential-gate/internal/domain"
	"credential-gate/internal/repository"
	"credential-gate/internal/repository/sqlite"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time         { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, repository.SessionRepository, *domain.User, *clock) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := sqlite.NewUserRepository(db)
	sessions := sqlite.NewSessionRepository(db)
	require.NoError(t, users.Init(ctx))
	require.NoError(t, sessions.Init(ctx))

	user := &domain.User{Username: "alice", PasswordHash: "h"}
	_, err = users.Create(ctx, user)
	require.NoError(t, err)

	clk := &clock{t: time.Now().Truncate(time.Second)}
	store, err := NewStore(sessions, Options{Secret: []byte("test-secret"), TTL: time.Hour, Now: clk.now})
	require.NoError(t, err)
	return store, sessions, user, clk
}

func TestStore_CreateReadDestroy(t *testing.T) {
	ctx := context.Background()
	store, _, user, _ := newTestStore(t)

	sess, token, err := store.Create(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, sess.LoggedIn)
	assert.Equal(t, user.ID, sess.UserID)

	got, err := store.Read(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, store.Destroy(ctx, token))
	_, err = store.Read(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_ReadRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	store, sessions, user, clk := newTestStore(t)

	_, err := store.Read(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = store.Read(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrNoSession)

	foreign, err := NewStore(sessions, Options{Secret: []byte("other-secret"), TTL: time.Hour, Now: clk.now})
	require.NoError(t, err)
	_, token, err := foreign.Create(ctx, user)
	require.NoError(t, err)
	_, err = store.Read(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "x"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = store.Read(ctx, unsigned)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, sessions, user, clk := newTestStore(t)

	sess, token, err := store.Create(ctx, user)
	require.NoError(t, err)

	clk.advance(59 * time.Minute)
	_, err = store.Read(ctx, token)
	require.NoError(t, err)

	clk.advance(2 * time.Minute)
	_, err = store.Read(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	// destroying an expired token still removes its row
	require.NoError(t, store.Destroy(ctx, token))
	_, err = sessions.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_DestroyUserAndPurge(t *testing.T) {
	ctx := context.Background()
	store, _, user, clk := newTestStore(t)

	_, t1, err := store.Create(ctx, user)
	require.NoError(t, err)
	_, t2, err := store.Create(ctx, user)
	require.NoError(t, err)

	n, err := store.DestroyUser(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	for _, tok := range []string{t1, t2} {
		_, err := store.Read(ctx, tok)
		assert.ErrorIs(t, err, ErrNoSession)
	}

	_, _, err = store.Create(ctx, user)
	require.NoError(t, err)
	clk.advance(2 * time.Hour)
	n, err = store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStore_DestroyUnknownTokenIsNoop(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	assert.NoError(t, store.Destroy(context.Background(), ""))
	assert.NoError(t, store.Destroy(context.Background(), "garbage"))
}

func TestNewStore_Validates(t *testing.T) {
	_, err := NewStore(nil, Options{TTL: time.Hour})
	assert.Error(t, err)
	_, err = NewStore(nil, Options{Secret: []byte("s")})
	assert.Error(t, err)
}
