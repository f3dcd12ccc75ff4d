package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Hmac256 is a function to generate HMAC256 hash.
func Hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifyHmac256 compares a received hex MAC against the expected MAC for
// body in constant time.
func VerifyHmac256(body, key []byte, receivedHMAC string) bool {
	expected := Hmac256(body, key)
	return hmac.Equal([]byte(receivedHMAC), []byte(expected))
}

// GenerateHash bcrypt-hashes a secret, e.g. a gate station key.
func GenerateHash(secret []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(secret, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareHash reports whether secret matches the stored bcrypt hash.
func CompareHash(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
