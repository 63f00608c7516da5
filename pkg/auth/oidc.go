package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"
)

// DefaultIssuer is the EBRAINS identity realm.
const DefaultIssuer = "https://iam.ebrains.eu/auth/realms/hbp"

// User is the subset of the identity provider's userinfo document the API
// relies on.
type User struct {
	Subject    string
	Username   string
	GivenName  string
	FamilyName string
	Email      string
	Teams      []string
}

// IdentityProvider resolves a bearer token to the user it was issued to.
type IdentityProvider interface {
	UserInfo(ctx context.Context, token string) (*User, error)
}

type userClaims struct {
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	Roles             struct {
		Team []string `json:"team"`
	} `json:"roles"`
}

// OIDCProvider reads userinfo from an OpenID Connect issuer.
type OIDCProvider struct {
	provider *oidc.Provider
}

// NewOIDCProvider runs discovery against issuer.
func NewOIDCProvider(ctx context.Context, issuer string) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}

	return &OIDCProvider{provider: provider}, nil
}

// Endpoint returns the issuer's OAuth2 endpoints.
func (p *OIDCProvider) Endpoint() oauth2.Endpoint {
	return p.provider.Endpoint()
}

func (p *OIDCProvider) UserInfo(ctx context.Context, token string) (*User, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	info, err := p.provider.UserInfo(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	var claims userClaims
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decoding userinfo claims: %w", err)
	}

	user := &User{
		Subject:    info.Subject,
		Username:   claims.PreferredUsername,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Email:      info.Email,
		Teams:      claims.Roles.Team,
	}

	if user.Username == "" {
		user.Username = "unknown"
	}

	return user, nil
}
