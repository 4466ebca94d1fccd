package app

import (
	"strings"

	"github.com/charlesng35/taskhub/internal/auth"
)

// TokenConfig converts AuthConfig into the parameters expected by the token verifier.
func (c AuthConfig) TokenConfig() auth.TokenConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}

	return auth.TokenConfig{
		Secret: c.JWT.Secret,
		Issuer: strings.TrimSpace(c.JWT.Issuer),
		TTL:    ttl,
	}
}
