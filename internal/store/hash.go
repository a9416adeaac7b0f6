package store

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// ContentHash returns the hex xxh3 digest of a source file's contents.
func ContentHash(content []byte) string {
	h := xxh3.New()
	_, _ = h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
