package security

import (
	"workspace-service/pkg/jwtutil"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes credentials before they reach storage
type BcryptHasher struct{}

func (BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches an opaque hash
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// JWTIssuer issues workspace-scoped session tokens
type JWTIssuer struct{}

func (JWTIssuer) IssueToken(userID, email, role, workspace, schema string) (string, error) {
	return jwtutil.GenerateToken(userID, email, role, workspace, schema)
}
