package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	i := NewIssuer("test-secret")
	p := Principal{UserID: "u-1", Username: "alice"}

	tok, err := i.Sign(p)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	got, err := i.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestVerifyMissingToken(t *testing.T) {
	i := NewIssuer("test-secret")
	_, err := i.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	signer := NewIssuer("secret-a")
	verifier := NewIssuer("secret-b")

	tok, err := signer.Sign(Principal{UserID: "u-1", Username: "alice"})
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTamperedToken(t *testing.T) {
	i := NewIssuer("test-secret")
	tok, err := i.Sign(Principal{UserID: "u-1", Username: "alice"})
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	parts[1] = parts[1][:len(parts[1])-2] + "xx"

	_, err = i.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	i := NewIssuer("test-secret")

	signedAt := time.Now().Add(-3 * time.Hour)
	i.now = func() time.Time { return signedAt }
	tok, err := i.Sign(Principal{UserID: "u-1", Username: "alice"})
	require.NoError(t, err)

	// token expired an hour ago from the real clock's point of view
	i.now = time.Now
	_, err = i.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
