package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("secret", "regular-reviews", time.Hour)

	token, err := m.GenerateAccessToken("user-1", domain.RoleUser, domain.RoleAdmin)
	require.NoError(t, err)

	p, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.True(t, p.IsAdmin())
	assert.ElementsMatch(t, []string{domain.RoleUser, domain.RoleAdmin}, p.Roles)
}

func TestManager_SingleRoleClaim(t *testing.T) {
	m := NewManager("secret", "", time.Hour)
	claims := &Claims{
		Role: domain.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-2",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	p, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", p.UserID)
	assert.True(t, p.HasRole(domain.RoleSuperAdmin))
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager("secret", "regular-reviews", time.Hour)
	valid, err := m.GenerateAccessToken("user-1")
	require.NoError(t, err)

	expired := NewManager("secret", "regular-reviews", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.GenerateAccessToken("user-1")
	require.NoError(t, err)

	otherIssuer, err := NewManager("secret", "someone-else", time.Hour).GenerateAccessToken("user-1")
	require.NoError(t, err)

	wrongKey, err := NewManager("other-secret", "regular-reviews", time.Hour).GenerateAccessToken("user-1")
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "regular-reviews"}}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "regular-reviews",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "regular-reviews",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"tampered", valid + "x"},
		{"expired", expiredToken},
		{"wrong issuer", otherIssuer},
		{"wrong key", wrongKey},
		{"no expiry", noExpiry},
		{"no subject", noSubject},
		{"none algorithm", noneAlg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestManager_Validator(t *testing.T) {
	m := NewManager("secret", "", time.Hour)
	token, err := m.GenerateAccessToken("user-3", domain.RoleUser)
	require.NoError(t, err)

	claims, err := m.Validator()(token)
	require.NoError(t, err)
	assert.Equal(t, "user-3", claims.UserID)
	assert.Equal(t, []string{domain.RoleUser}, claims.Roles)

	_, err = m.Validator()("bad")
	assert.Error(t, err)
}
