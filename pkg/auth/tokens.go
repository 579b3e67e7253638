// Package auth issues and checks session tokens, verifies identity
// provider logins and guards routes by role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/bakery/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims carried by both token kinds. Subject is the user or admin id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Kind  string `json:"kind"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(cfg *config.AuthConfig, issuer string) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		issuer:     issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

// Issue signs a fresh access/refresh pair for subject.
func (t *TokenIssuer) Issue(subject, email, role string) (*TokenPair, error) {
	now := t.now()
	access, err := t.sign(subject, email, role, KindAccess, now, t.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(subject, email, role, KindRefresh, now, t.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(t.accessTTL),
		TokenType:    "Bearer",
	}, nil
}

func (t *TokenIssuer) sign(subject, email, role, kind string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Email: email,
		Role:  role,
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Parse validates a token of the given kind and returns its claims.
func (t *TokenIssuer) Parse(token, kind string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new pair.
func (t *TokenIssuer) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := t.Parse(refreshToken, KindRefresh)
	if err != nil {
		return nil, err
	}
	return t.Issue(claims.Subject, claims.Email, claims.Role)
}
