package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	stateIssuer = "provenance-api"
	stateTTL    = 10 * time.Minute
)

// ErrInvalidState indicates the login callback carried a state that was not
// issued by this service, or has expired.
var ErrInvalidState = errors.New("invalid login state")

var loginScopes = []string{"openid", "profile", "email", "roles", "team", "group"}

// Login drives the authorization code flow against the identity provider.
// The state parameter is a short-lived HS256 token signed with the session
// secret.
type Login struct {
	config *oauth2.Config
	secret []byte
	now    func() time.Time
}

func NewLogin(endpoint oauth2.Endpoint, clientID, clientSecret, redirectURL string, secret []byte) *Login {
	return &Login{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirectURL,
			Scopes:       loginScopes,
		},
		secret: secret,
		now:    time.Now,
	}
}

// Start returns the identity provider URL to redirect the browser to, and
// the state the callback must echo.
func (l *Login) Start() (string, string, error) {
	now := l.now()

	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}).SignedString(l.secret)
	if err != nil {
		return "", "", fmt.Errorf("signing login state: %w", err)
	}

	return l.config.AuthCodeURL(state), state, nil
}

// VerifyState checks the state returned by the identity provider matches
// the one handed to the browser and is still valid.
func (l *Login) VerifyState(state, expected string) error {
	if state == "" || state != expected {
		return ErrInvalidState
	}

	_, err := jwt.ParseWithClaims(state, new(jwt.RegisteredClaims),
		func(*jwt.Token) (any, error) { return l.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	return nil
}

// Exchange trades an authorization code for tokens.
func (l *Login) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := l.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	return token, nil
}

// ServiceTokenSource returns tokens for the service account, used where the
// API reads the graph on its own behalf.
func ServiceTokenSource(ctx context.Context, endpoint oauth2.Endpoint, clientID, clientSecret string) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     endpoint.TokenURL,
		AuthStyle:    endpoint.AuthStyle,
	}

	return cfg.TokenSource(ctx)
}

// Subject returns the "sub" claim of an access token without verifying it.
// The identity provider remains the authority on the token; this is only
// used to label log lines.
func Subject(token string) string {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}

	sub, _ := claims.GetSubject()

	return sub
}
