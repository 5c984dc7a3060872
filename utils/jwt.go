package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"nimblevision/config"
)

// JWTClaims represents the claims in the JWT token
type JWTClaims struct {
	UserID      uint   `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AccessLevel string `json:"access_level"`
	jwt.RegisteredClaims
}

// GenerateJWT generates a new JWT token
func GenerateJWT(userID uint, email, role, accessLevel string, expTime time.Time) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:      userID,
		Email:       email,
		Role:        role,
		AccessLevel: accessLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expTime),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// IssueToken signs a token for the account that expires after JWT_EXPIRES_IN
func IssueToken(userID uint, email, role, accessLevel string) (string, time.Time, error) {
	expiry := time.Now().Add(config.GetJWTExpiration())
	token, err := GenerateJWT(userID, email, role, accessLevel, expiry)
	return token, expiry, err
}

// ValidateJWT validates a JWT token and extracts its claims
func ValidateJWT(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
