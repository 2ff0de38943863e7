package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpiredToken                  = errors.New("expired-token")
	ErrInvalidTokenSignature         = errors.New("invalid-token-signature")
	ErrInvalidSigningAlg             = errors.New("invalid-signing-alg")
	ErrCorruptedToken                = errors.New("corrupted-token")
	UnexpectedTokenGenerationError   = errors.New("unexpected-token-generation-error")
	UnexpectedTokenVerificationError = errors.New("unexpected-token-verification-error")
)

// seatClaims binds a token to one seat of one session.
type seatClaims struct {
	SessionID string `json:"sid"`
	PlayerID  int    `json:"pid"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewJWTManager(secretKey string, maxAge time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		maxAge:    maxAge,
	}
}

func (m *JWTManager) Issue(sessionID string, playerID int) (string, error) {
	return m.IssueAt(sessionID, playerID, time.Now())
}

func (m *JWTManager) IssueAt(sessionID string, playerID int, now time.Time) (string, error) {
	claims := seatClaims{
		SessionID: sessionID,
		PlayerID:  playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secretKey)

	if err != nil {
		return "", fmt.Errorf("%w: %w", UnexpectedTokenGenerationError, err)
	}

	return signedToken, nil
}

func (m *JWTManager) Verify(tokenString string) (string, int, error) {
	token, err := jwt.ParseWithClaims(tokenString, &seatClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningAlg
		}
		return m.secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSigningAlg):
			return "", 0, ErrInvalidSigningAlg
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", 0, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			return "", 0, ErrInvalidTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", 0, ErrCorruptedToken
		default:
			return "", 0, fmt.Errorf("%w: %w", UnexpectedTokenVerificationError, err)
		}
	}

	if claims, ok := token.Claims.(*seatClaims); ok && token.Valid && claims.SessionID != "" && claims.PlayerID > 0 {
		return claims.SessionID, claims.PlayerID, nil
	}

	return "", 0, ErrCorruptedToken
}
