package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memUserStore struct {
	users map[string]*User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*User{}}
}

func (m *memUserStore) GetByUsername(_ context.Context, username string) (*User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *memUserStore) Create(_ context.Context, u *User) error {
	m.users[u.Username] = u
	return nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	store := newMemUserStore()
	svc := NewService(store, NewIssuer("s"), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "pw1"))

	// stored credential is a hash, not the plaintext
	assert.NotEqual(t, "pw1", store.users["alice"].PasswordHash)

	tok, err := svc.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)

	p, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, store.users["alice"].ID, p.UserID)
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	store := newMemUserStore()
	svc := NewService(store, NewIssuer("s"), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "pw1"))

	_, errUnknown := svc.Authenticate(ctx, "nobody", "pw1")
	_, errWrongPass := svc.Authenticate(ctx, "alice", "wrong")

	// unknown user and wrong password are indistinguishable to the caller
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPass, ErrInvalidCredentials)
}

func TestRegisterDuplicate(t *testing.T) {
	store := newMemUserStore()
	svc := NewService(store, NewIssuer("s"), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "pw1"))
	assert.ErrorIs(t, svc.Register(ctx, "alice", "pw2"), ErrUserExists)
}
