package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType separates short-lived access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims is the payload we sign. Subject carries the user ID.
type Claims struct {
	UserID int64     `json:"uid"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned by login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenManager signs and checks HS256 tokens with one secret.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// GenerateToken creates a signed token of the given type for userID.
func (m *TokenManager) GenerateToken(userID int64, typ TokenType) (string, error) {
	ttl := m.accessTTL
	if typ == RefreshToken {
		ttl = m.refreshTTL
	}

	// 1. Create the claims
	now := m.now()
	claims := Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	// 2. Sign with HS256 and our secret
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GeneratePair issues a fresh access and refresh token.
func (m *TokenManager) GeneratePair(userID int64) (TokenPair, error) {
	access, err := m.GenerateToken(userID, AccessToken)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.GenerateToken(userID, RefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// ValidateToken parses tokenString and returns the user ID when it is a
// valid, unexpired token of the wanted type.
func (m *TokenManager) ValidateToken(tokenString string, want TokenType) (int64, error) {
	// 1. Parse, pinning the signing method
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}

	// 2. An access token must not be usable as a refresh token and vice versa
	if claims.Type != want {
		return 0, ErrWrongTokenType
	}
	return claims.UserID, nil
}

// Refresh exchanges a refresh token for a new access token.
func (m *TokenManager) Refresh(refreshToken string) (string, error) {
	userID, err := m.ValidateToken(refreshToken, RefreshToken)
	if err != nil {
		return "", err
	}
	return m.GenerateToken(userID, AccessToken)
}
