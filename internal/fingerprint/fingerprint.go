package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrRead tags failures to read the content being fingerprinted. Hashing
// itself cannot fail, so every error from this package wraps ErrRead.
var ErrRead = errors.New("fingerprint read error")

const chunkSize = 64 * 1024

// Reader computes the hex-encoded SHA-256 digest of everything readable from
// r, streaming in fixed-size chunks so memory use stays flat regardless of
// content size.
func Reader(r io.Reader) (string, error) {
	hasher := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(hasher, r, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRead, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// File computes the hex-encoded SHA-256 digest of the file at path.
func File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrRead, path, err)
	}
	defer file.Close()

	digest, err := Reader(file)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return digest, nil
}

// Bytes computes the hex-encoded SHA-256 digest of b. It never fails.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
