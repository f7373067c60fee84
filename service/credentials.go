package service

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashCredential returns the lowercase hex SHA-256 digest the webhook backend
// expects in place of a plaintext username, email or password.
func HashCredential(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Credentials is the hashed form of a login or registration.
type Credentials struct {
	UserHash     string
	EmailHash    string
	PasswordHash string
}

// HashCredentials hashes every non-empty field; email may be empty for logins.
func HashCredentials(username, email, password string) Credentials {
	creds := Credentials{
		UserHash:     HashCredential(username),
		PasswordHash: HashCredential(password),
	}
	if email != "" {
		creds.EmailHash = HashCredential(email)
	}
	return creds
}
