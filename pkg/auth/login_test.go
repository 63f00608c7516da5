package auth_test

import (
	"net/url"
	"testing"

	"github.com/ebrains-prov/provenance-api/pkg/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var endpoint = oauth2.Endpoint{
	AuthURL:  "https://iam.example.org/auth/realms/hbp/protocol/openid-connect/auth",
	TokenURL: "https://iam.example.org/auth/realms/hbp/protocol/openid-connect/token",
}

func TestLogin_StartAndVerify(t *testing.T) {
	login := auth.NewLogin(endpoint, "prov-api", "secret", "https://prov.example.org/auth", []byte("session-secret"))

	redirect, state, err := login.Start()
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "iam.example.org", u.Host)
	assert.Equal(t, state, u.Query().Get("state"))
	assert.Equal(t, "prov-api", u.Query().Get("client_id"))
	assert.Equal(t, "https://prov.example.org/auth", u.Query().Get("redirect_uri"))
	assert.Contains(t, u.Query().Get("scope"), "team")

	require.NoError(t, login.VerifyState(state, state))
}

func TestLogin_VerifyStateRejects(t *testing.T) {
	login := auth.NewLogin(endpoint, "prov-api", "secret", "https://prov.example.org/auth", []byte("session-secret"))
	other := auth.NewLogin(endpoint, "prov-api", "secret", "https://prov.example.org/auth", []byte("another-secret"))

	_, state, err := login.Start()
	require.NoError(t, err)

	_, forged, err := other.Start()
	require.NoError(t, err)

	tests := map[string]struct{ state, expected string }{
		"empty":          {"", ""},
		"cookie differs": {state, forged},
		"wrong secret":   {forged, forged},
		"not a token":    {"abc", "abc"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, login.VerifyState(tt.state, tt.expected), auth.ErrInvalidState)
		})
	}
}

func TestSubject(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "f8a1c2"}).SignedString([]byte("k"))
	require.NoError(t, err)

	assert.Equal(t, "f8a1c2", auth.Subject(signed))
	assert.Empty(t, auth.Subject("opaque-token"))
}
