package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize     = 16
	hashSize     = 32
	pbkdf2Rounds = 300_000
)

// HashPassword derives a PBKDF2-SHA256 hash from the password, a fresh random
// salt and the server-wide pepper. Salt and hash are returned base64-encoded
// for storage.
func HashPassword(password, pepper string) (hash string, salt string, err error) {
	rawSalt := make([]byte, saltSize)
	if _, err = rand.Read(rawSalt); err != nil {
		return "", "", err
	}
	rawHash := deriveKey(password, pepper, rawSalt)
	return base64.StdEncoding.EncodeToString(rawHash), base64.StdEncoding.EncodeToString(rawSalt), nil
}

// VerifyPassword recomputes the hash for the candidate password and compares
// it in constant time.
func VerifyPassword(password, pepper, storedHash, storedSalt string) bool {
	rawSalt, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false
	}
	rawHash, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}
	candidate := deriveKey(password, pepper, rawSalt)
	return subtle.ConstantTimeCompare(rawHash, candidate) == 1
}

func deriveKey(password, pepper string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password+pepper), salt, pbkdf2Rounds, hashSize, sha256.New)
}
