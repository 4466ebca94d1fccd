package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is used when no lifetime is configured.
const DefaultTokenTTL = 15 * time.Minute

// metaGroupsKey and metaRolesKey are the metadata entries upstream identity providers use
// for group codes and roles.
const (
	metaGroupsKey = "groups"
	metaRolesKey  = "roles"
)

// RoleService marks producer tokens allowed to create notifications and drive their status.
const RoleService = "service"

// TokenConfig configures a TokenVerifier.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Clock  func() time.Time
}

// Claims carries the identity the notification API acts on.
type Claims struct {
	UserID   string         `json:"uid"`
	Groups   []string       `json:"grp,omitempty"`
	Roles    []string       `json:"roles,omitempty"`
	Metadata map[string]any `json:"meta,omitempty"`
	jwt.RegisteredClaims
}

// GroupCodes returns the fan-out groups of the caller: the grp claim merged with
// meta.groups, lower-cased and de-duplicated.
func (c *Claims) GroupCodes() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(code string) {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}

	for _, code := range c.Groups {
		add(code)
	}
	for _, code := range metaStrings(c.Metadata, metaGroupsKey) {
		add(code)
	}
	sort.Strings(out)
	return out
}

// HasRole reports whether the roles claim or meta.roles carries role.
func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	for _, candidate := range append(append([]string(nil), c.Roles...), metaStrings(c.Metadata, metaRolesKey)...) {
		if strings.EqualFold(strings.TrimSpace(candidate), role) {
			return true
		}
	}
	return false
}

func metaStrings(meta map[string]any, key string) []string {
	switch raw := meta[key].(type) {
	case []any:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if value, ok := item.(string); ok {
				out = append(out, value)
			}
		}
		return out
	case []string:
		return raw
	case string:
		return strings.Split(raw, ",")
	}
	return nil
}

// TokenInput describes a token to issue.
type TokenInput struct {
	UserID   string
	Groups   []string
	Roles    []string
	Audience []string
	Metadata map[string]any
}

// TokenVerifier validates bearer tokens minted by the identity boundary. It can also issue
// them, which local tooling and tests use.
type TokenVerifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenVerifier constructs a TokenVerifier; the secret is required.
func NewTokenVerifier(cfg TokenConfig) (*TokenVerifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: token secret must be provided")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenVerifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// Issue signs an HS256 token for input.
func (v *TokenVerifier) Issue(input TokenInput) (string, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return "", errors.New("auth: user id is required")
	}

	now := v.now()
	claims := &Claims{
		UserID:   userID,
		Groups:   append([]string(nil), input.Groups...),
		Roles:    append([]string(nil), input.Roles...),
		Metadata: cloneMetadata(input.Metadata),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			Audience:  input.Audience,
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates token. A token without a user id is rejected.
func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("auth: token is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.New("auth: invalid issuer")
	}
	claims.UserID = strings.TrimSpace(claims.UserID)
	if claims.UserID == "" {
		return nil, errors.New("auth: missing user id claim")
	}
	return &claims, nil
}

func cloneMetadata(meta map[string]any) map[string]any {
	if len(meta) == 0 {
		return nil
	}
	cpy := make(map[string]any, len(meta))
	for k, val := range meta {
		cpy[k] = val
	}
	return cpy
}
