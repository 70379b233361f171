// Package checksum computes the hex digests sent along ingestion requests.
package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/nbisweden/lega-e2e/internal/models"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

func newHash(algorithm models.ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm.OrDefault() {
	case models.ChecksumMD5:
		return md5.New(), nil
	case models.ChecksumSHA256:
		return sha256.New(), nil
	default:
		return nil, srvErrors.NewInvalidArgumentError("algorithm", fmt.Sprintf("unsupported checksum algorithm %q", algorithm))
	}
}

// Reader returns the lowercase hex digest of everything read from r.
func Reader(r io.Reader, algorithm models.ChecksumAlgorithm) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the lowercase hex digest of the file at path.
func File(path string, algorithm models.ChecksumAlgorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Reader(f, algorithm)
}
