package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"workspace-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
)

var cfg *config.JWTConfig

// UserClaims represents the JWT claims for an authenticated workspace user
type UserClaims struct {
	Email     string `json:"email"`
	UserID    string `json:"user_id"`
	Role      string `json:"role,omitempty"`
	Workspace string `json:"workspace,omitempty"` // public handle of the workspace
	Schema    string `json:"schema,omitempty"`    // physical schema the token is scoped to
	jwt.RegisteredClaims
}

// Initialize sets the JWT configuration used for signing and validation
func Initialize(c *config.JWTConfig) {
	cfg = c
}

// GenerateToken creates a JWT token scoped to a workspace
func GenerateToken(userID, email, role, workspace, schema string) (string, error) {
	if cfg == nil {
		return "", errors.New("jwt configuration not initialized")
	}

	claims := UserClaims{
		Email:     email,
		UserID:    userID,
		Role:      role,
		Workspace: workspace,
		Schema:    schema,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	if cfg == nil {
		return nil, errors.New("jwt configuration not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.SigningKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
