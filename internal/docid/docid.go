// Package docid derives deterministic document IDs from file paths.
package docid

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
)

// FromPath returns a stable document ID for the given path. The path is made
// absolute and cleaned first, so the same file always yields the same ID
// regardless of how it was referenced.
func FromPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	sum := sha1.Sum([]byte(abs))
	return hex.EncodeToString(sum[:])
}
