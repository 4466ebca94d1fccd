package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewTokenVerifierRequiresSecret(t *testing.T) {
	_, err := NewTokenVerifier(TokenConfig{})
	require.EqualError(t, err, "auth: token secret must be provided")
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	v, err := NewTokenVerifier(TokenConfig{Secret: "s3cret", Issuer: "taskhub", TTL: time.Hour, Clock: fixedClock(now)})
	require.NoError(t, err)

	meta := map[string]any{"groups": []string{"Ops", "design"}}
	token, err := v.Issue(TokenInput{UserID: "alice", Groups: []string{"ops", "eng"}, Audience: []string{"api"}, Metadata: meta})
	require.NoError(t, err)
	meta["groups"] = nil

	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.UserID)
	require.Equal(t, "taskhub", claims.Issuer)
	require.Equal(t, jwt.ClaimStrings{"api"}, claims.Audience)
	require.True(t, claims.ExpiresAt.Time.Equal(now.Add(time.Hour)))
	require.Equal(t, []string{"design", "eng", "ops"}, claims.GroupCodes())
}

func TestVerifyRejects(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenVerifier(TokenConfig{Secret: "one", TTL: time.Minute, Clock: fixedClock(now)})
	require.NoError(t, err)
	token, err := issuer.Issue(TokenInput{UserID: "alice"})
	require.NoError(t, err)

	other, err := NewTokenVerifier(TokenConfig{Secret: "two", Clock: fixedClock(now)})
	require.NoError(t, err)
	_, err = other.Verify(token)
	require.Error(t, err)

	later, err := NewTokenVerifier(TokenConfig{Secret: "one", Clock: fixedClock(now.Add(time.Hour))})
	require.NoError(t, err)
	_, err = later.Verify(token)
	require.Error(t, err)

	strict, err := NewTokenVerifier(TokenConfig{Secret: "one", Issuer: "taskhub", Clock: fixedClock(now)})
	require.NoError(t, err)
	_, err = strict.Verify(token)
	require.EqualError(t, err, "auth: invalid issuer")

	_, err = issuer.Verify(" ")
	require.Error(t, err)

	_, err = issuer.Issue(TokenInput{UserID: "  "})
	require.Error(t, err)
}

func TestGroupCodesFromMetadataString(t *testing.T) {
	claims := &Claims{Metadata: map[string]any{"groups": "ops, Eng,ops"}}
	require.Equal(t, []string{"eng", "ops"}, claims.GroupCodes())

	var none *Claims
	require.Nil(t, none.GroupCodes())
}

func TestHasRole(t *testing.T) {
	v, err := NewTokenVerifier(TokenConfig{Secret: "s3cret"})
	require.NoError(t, err)

	token, err := v.Issue(TokenInput{UserID: "scheduler", Roles: []string{RoleService}})
	require.NoError(t, err)
	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.True(t, claims.HasRole("SERVICE"))

	require.True(t, (&Claims{Metadata: map[string]any{"roles": []any{"admin", "service"}}}).HasRole(RoleService))
	require.True(t, (&Claims{Metadata: map[string]any{"roles": "admin, service"}}).HasRole(RoleService))
	require.False(t, (&Claims{UserID: "alice"}).HasRole(RoleService))
	require.False(t, (&Claims{Roles: []string{"service"}}).HasRole(" "))

	var none *Claims
	require.False(t, none.HasRole(RoleService))
}
