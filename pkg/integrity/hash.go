// Package integrity implements block-hash computation, baseline diffing,
// entropy sampling, change classification, and ransomware-pattern detection
// over the files a Store protects. It is stateless aside from the bounded
// ransomware detector history.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// HashVector computes an ordered vector of lowercase-hex SHA-256 digests,
// one per block of blockSize bytes read sequentially from offset zero. The
// final block may be shorter than blockSize; it is never padded. Returns
// the vector and the total file size.
func HashVector(path string, blockSize int64) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, translateOpenErr(err)
	}
	defer f.Close()

	if blockSize <= 0 {
		return nil, 0, fmt.Errorf("integrity: block size must be positive, got %d", blockSize)
	}

	buf := make([]byte, int(blockSize))
	var hashes []string
	var total int64

	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			sum := sha256.Sum256(buf[:n])
			hashes = append(hashes, hex.EncodeToString(sum[:]))
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrIoError, err)
		}
	}

	return hashes, total, nil
}

// translateOpenErr maps os.Open failures to the Integrity Engine's error
// kinds so callers can errors.Is against a stable vocabulary.
func translateOpenErr(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrFileNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", ErrIoError, err)
	}
}
