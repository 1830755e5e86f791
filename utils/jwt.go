package utils

import (
	"errors"
	"eventops/models"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTService struct {
	secretKey      []byte
	issuer         string
	accessTokenTTL time.Duration
}

type Claims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	TokenType string `json:"tokenType"` // access
	jwt.RegisteredClaims
}

const TokenTypeAccess = "access"

func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey:      []byte(secretKey),
		issuer:         "eventops",
		accessTokenTTL: 12 * time.Hour, // one operator shift
	}
}

// GenerateAccessToken signs an access token for identity. The portal's login
// flow lives elsewhere; this signs demo tokens for local runs and tests.
func (j *JWTService) GenerateAccessToken(identity models.Identity) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.accessTokenTTL)

	claims := Claims{
		UserID:    identity.UserID,
		Email:     identity.Email,
		Name:      identity.Name,
		Role:      identity.Role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   identity.UserID,
			ID:        GenerateUUID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secretKey, nil
	}, jwt.WithIssuer(j.issuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// Identity converts validated claims into the caller identity.
func (c *Claims) Identity() models.Identity {
	return models.Identity{
		UserID: c.UserID,
		Email:  c.Email,
		Name:   c.Name,
		Role:   c.Role,
	}
}
