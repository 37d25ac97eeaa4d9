package store

import (
	"crypto/sha256"
	"fmt"
)

// HashContent returns the hex SHA-256 of a file's bytes. Results are only
// reused for identical content.
func HashContent(src []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(src))
}
