// Package cache keeps parsed service skeletons between generation runs so
// watch mode only reparses documents whose content changed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the hex SHA-256 of content
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashString returns the hex SHA-256 of content
func HashString(content string) string {
	return HashContent([]byte(content))
}
