package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const idToken = "header.payload.signature"

type stubTokens struct {
	claims *TokenClaims
	err    error
	calls  int
}

func (s *stubTokens) VerifyIDToken(ctx context.Context, token string) (*TokenClaims, error) {
	s.calls++
	return s.claims, s.err
}

func serviceHash(t *testing.T, key string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestVerify_AllowListedAdmin(t *testing.T) {
	tokens := &stubTokens{claims: &TokenClaims{UID: "u1", Email: "Owner@ThreeChicks.com", EmailVerified: true}}
	v := NewVerifier(tokens, []string{" owner@threechicks.com "}, "", nil)

	got := v.Verify(context.Background(), idToken)

	require.True(t, got.Authorized, got.Error)
	assert.Equal(t, &Identity{Subject: "u1", Email: "Owner@ThreeChicks.com", Kind: KindUser}, got.Identity)
	assert.Empty(t, got.Error)
}

func TestVerify_Denied(t *testing.T) {
	tests := []struct {
		name   string
		tokens TokenVerifier
		token  string
		want   string
	}{
		{"empty token", &stubTokens{}, "  ", "missing token"},
		{"bad signature", &stubTokens{err: errors.New("token expired")}, idToken, "invalid identity token"},
		{"unverified email", &stubTokens{claims: &TokenClaims{UID: "u1", Email: "owner@threechicks.com"}}, idToken, "email is not verified"},
		{"not in allow-list", &stubTokens{claims: &TokenClaims{UID: "u2", Email: "guest@example.com", EmailVerified: true}}, idToken, "not an admin"},
		{"no token verifier", nil, idToken, "identity tokens are not accepted"},
		{"opaque token without service key", &stubTokens{}, "some-key", "invalid service key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifier(tt.tokens, []string{"owner@threechicks.com"}, "", nil)
			got := v.Verify(context.Background(), tt.token)
			assert.False(t, got.Authorized)
			assert.Nil(t, got.Identity)
			assert.Equal(t, tt.want, got.Error)
		})
	}
}

func TestVerify_ServiceKey(t *testing.T) {
	tokens := &stubTokens{}
	v := NewVerifier(tokens, nil, serviceHash(t, "s3cret-key"), nil)

	got := v.Verify(context.Background(), "s3cret-key")
	require.True(t, got.Authorized)
	assert.Equal(t, ServiceIdentity, got.Identity.Subject)
	assert.Equal(t, KindService, got.Identity.Kind)

	got = v.Verify(context.Background(), "wrong-key")
	assert.False(t, got.Authorized)
	assert.Equal(t, 0, tokens.calls)
}

func TestHashAPIKey(t *testing.T) {
	h, err := HashAPIKey("k")
	require.NoError(t, err)
	assert.True(t, VerifyAPIKey("k", h))
	assert.False(t, VerifyAPIKey("other", h))
}
