// Package hashutil computes content-addressed hashes for distributed files.
package hashutil

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DefaultBufferSize is the chunk size used to stream a file through the
// hasher when no buffer size is configured.
const DefaultBufferSize = 8192

// IOError wraps a filesystem read failure encountered while hashing.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("hashutil: read %q: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// HashFile streams path through a fixed-size buffer and returns the lowercase
// hex SHA-1 digest plus the number of bytes read. An empty file hashes to
// "da39a3ee5e6b4b0d3255bfef95601890afd80709". bufferSize <= 0 falls back to
// DefaultBufferSize.
func HashFile(path string, bufferSize int) (string, int64, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	f, err := os.Open(path)
	if err != nil {
		return "", 0, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	h := sha1.New()
	buf := make([]byte, bufferSize)
	var total int64
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			total += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", 0, &IOError{Path: path, Err: readErr}
		}
	}

	return hex.EncodeToString(h.Sum(nil)), total, nil
}

// HashBytes returns the lowercase hex SHA-1 digest of data already held in
// memory, for callers that have already read a file and would otherwise
// re-open it just to hash it again (e.g. populating a cache entry).
func HashBytes(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
