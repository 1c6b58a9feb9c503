// Package hashsum computes the content fingerprint the Classifier compares
// across sides: a 64-bit non-cryptographic hash streamed over a file's
// bytes without holding the whole file in memory.
package hashsum

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// chunkSize is the read buffer used when streaming a file into the hasher.
// Large enough to amortize syscall overhead, small enough to keep memory
// use flat regardless of file size.
const chunkSize = 256 * 1024

// File streams path's contents through xxHash64 and returns the digest.
func File(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
