package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/agent-management/internal"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	// DefaultAccessExpiry is the fallback when the configured expiry
	// string cannot be parsed.
	DefaultAccessExpiry  = 900 * time.Second
	DefaultRefreshExpiry = 7 * 24 * time.Hour
	DefaultResetExpiry   = time.Hour
)

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

// NewJWTTokenGenerator builds a generator from the configured expiry
// strings. Unparseable expiries fall back to defaults so that a bad
// config value degrades token lifetime instead of breaking login.
func NewJWTTokenGenerator(accessSecret, refreshSecret, accessExpiry, refreshExpiry string) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     ParseExpiry(accessExpiry, DefaultAccessExpiry),
		RefreshTokenTTL:    ParseExpiry(refreshExpiry, DefaultRefreshExpiry),
	}
}

// ParseExpiry parses the compact <integer><s|m|h|d> duration format.
// Anything it cannot parse yields the fallback.
func ParseExpiry(expiry string, fallback time.Duration) time.Duration {
	if len(expiry) < 2 {
		return fallback
	}

	unit := expiry[len(expiry)-1]
	value, err := strconv.Atoi(expiry[:len(expiry)-1])
	if err != nil || value <= 0 {
		return fallback
	}

	switch unit {
	case 's':
		return time.Duration(value) * time.Second
	case 'm':
		return time.Duration(value) * time.Minute
	case 'h':
		return time.Duration(value) * time.Hour
	case 'd':
		return time.Duration(value) * 24 * time.Hour
	default:
		return fallback
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(account *Account, roles, permissions []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.AccessTokenTTL)

	claims := &Claims{
		UserID:      account.ID,
		Username:    account.Username,
		Email:       account.Email,
		Roles:       roles,
		Permissions: permissions,
		TokenType:   tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   account.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.AccessTokenSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID string) (string, error) {
	now := time.Now()

	claims := &Claims{
		UserID:    userID,
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.RefreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) VerifyAccessToken(tokenString string) (*Claims, error) {
	return j.verify(tokenString, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) VerifyRefreshToken(tokenString string) (*Claims, error) {
	claims, err := j.verify(tokenString, j.RefreshTokenSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

func (j *JWTTokenGenerator) verify(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, internal.ErrInvalidToken
}
