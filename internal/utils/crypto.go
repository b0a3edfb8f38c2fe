// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const (
	userIDPrefix    = "USR_"
	productIDPrefix = "PRD_"
)

// GenerateUserID returns USR_ followed by 12 upper-case hex characters.
func GenerateUserID() string {
	return userIDPrefix + shortHex()
}

// GenerateProductID returns PRD_ followed by 12 upper-case hex characters.
func GenerateProductID() string {
	return productIDPrefix + shortHex()
}

func shortHex() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:])[:12])
}

// HashBytes returns the hex sha256 of input.
func HashBytes(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}
