package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Options is an opaque per-call bag. It only differentiates cache entries.
type Options map[string]any

// Canonical returns a stable serialization of o. nil and empty options
// serialize identically.
func (o Options) Canonical() ([]byte, error) {
	if len(o) == 0 {
		return []byte("{}"), nil
	}
	// encoding/json writes map keys in sorted order at every level.
	b, err := json.Marshal(map[string]any(o))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return b, nil
}

// ContentHash returns the hex SHA-256 digest of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CacheKey derives the manifest cache key for (contentHash, opts).
func CacheKey(contentHash string, opts Options) (string, error) {
	canonical, err := opts.Canonical()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(contentHash))
	h.Write([]byte{'\n'})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
