package jwtutil

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/nattapong-dev/inventory-api/pkg/config"
)

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	Email  string `json:"email"`
	UserID uint   `json:"user_id"`
	jwt.RegisteredClaims
}

// JWT signs and validates session tokens. The signing key and expiration come
// from configuration; the instance is built once in main and shared.
type JWT struct {
	secret []byte
	expiry time.Duration
}

// New creates a JWT utility from config
func New(cfg *config.JWTConfig) *JWT {
	return &JWT{
		secret: []byte(cfg.SigningKey),
		expiry: cfg.ExpirationTime,
	}
}

// GenerateToken creates a signed, time-limited token binding the user identity
func (j *JWT) GenerateToken(email string, userID uint) (string, error) {
	claims := UserClaims{
		Email:  email,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken validates and parses the JWT token
func (j *JWT) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
