// Package auth validates the access tokens issued by the account service and
// resolves them to a principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/middleware"
)

// Claims are the access token claims. Tokens carry either a roles list or,
// from older issuers, a single role.
type Claims struct {
	UserID string   `json:"user_id"`
	Role   string   `json:"role,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) roles() []string {
	roles := make([]string, 0, len(c.Roles)+1)
	roles = append(roles, c.Roles...)
	if c.Role != "" {
		roles = append(roles, c.Role)
	}
	return roles
}

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid access token")

// Manager signs and validates HS256 access tokens.
type Manager struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// NewManager creates a token manager. An empty issuer disables the issuer check.
func NewManager(secret, issuer string, expiry time.Duration) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer, expiry: expiry, now: time.Now}
}

// GenerateAccessToken signs a token for userID with the given roles. The
// service only issues tokens for operator tooling and tests.
func (m *Manager) GenerateAccessToken(userID string, roles ...string) (string, error) {
	now := m.now().UTC()
	claims := &Claims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses tokenString and returns the principal it names.
func (m *Manager) ValidateAccessToken(tokenString string) (*domain.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &domain.Principal{UserID: userID, Roles: claims.roles()}, nil
}

// Validator adapts the manager to the HTTP auth middleware.
func (m *Manager) Validator() middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		p, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: p.UserID, Roles: p.Roles}, nil
	}
}
