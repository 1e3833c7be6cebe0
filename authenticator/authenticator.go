package authenticator

import (
	"context"
)

// Claims represents user claims from the ID token
type Claims map[string]interface{}

// Token represents an authentication token
type Token struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       int64
}

// Provider interface abstracts single sign-on provider operations. The
// provider only establishes identity; account existence, activation and the
// login log are enforced by the login service afterwards.
type Provider interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Token, error)
	GetClaims(ctx context.Context, token *Token) (Claims, error)
}

// Username extracts the application username from the ID token claims. The
// preferred_username claim is the OIDC standard home for it; sub is the
// fallback for providers that do not map it.
func (c Claims) Username() string {
	if username, ok := c["preferred_username"].(string); ok && username != "" {
		return username
	}
	if sub, ok := c["sub"].(string); ok {
		return sub
	}
	return ""
}
