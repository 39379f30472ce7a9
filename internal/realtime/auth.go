package realtime

import (
	"production_backend/platform/config"
	"production_backend/platform/httpkit"

	"github.com/google/uuid"
)

// Claims identify an authenticated session.
type Claims struct {
	UserID   uuid.UUID
	Roles    []string
	TenantID *uuid.UUID
}

// Authenticator verifies the token sent in the auth message.
type Authenticator interface {
	Authenticate(token string) (Claims, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(token string) (Claims, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(token string) (Claims, error) {
	return f(token)
}

// JWTAuthenticator accepts the same access tokens as the REST API.
func JWTAuthenticator(cfg config.JWTConfig) Authenticator {
	return AuthenticatorFunc(func(token string) (Claims, error) {
		c, err := httpkit.ParseAccessToken(token, cfg)
		if err != nil {
			return Claims{}, err
		}
		return Claims{UserID: c.UserID, Roles: c.Roles, TenantID: c.TenantID}, nil
	})
}
