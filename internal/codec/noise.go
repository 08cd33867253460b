package codec

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const (
	// DefaultBlockSize is the padding granularity, 32 KiB.
	DefaultBlockSize = 1 << 15

	lengthPrefixSize = 4
)

// Expand prefixes b with its length and pads the result with random bytes
// up to the next multiple of blockSize.
func Expand(b []byte, blockSize int) ([]byte, error) {
	if blockSize <= lengthPrefixSize {
		return nil, fmt.Errorf("block size %d too small", blockSize)
	}

	used := lengthPrefixSize + len(b)
	total := (used + blockSize - 1) / blockSize * blockSize

	out := make([]byte, total)
	binary.BigEndian.PutUint32(out, uint32(len(b)))
	copy(out[lengthPrefixSize:], b)
	if _, err := rand.Read(out[used:]); err != nil {
		return nil, fmt.Errorf("failed to generate noise: %w", err)
	}
	return out, nil
}

// Shrink reverses Expand. The returned slice aliases b.
func Shrink(b []byte, blockSize int) ([]byte, error) {
	if blockSize <= lengthPrefixSize {
		return nil, fmt.Errorf("block size %d too small", blockSize)
	}
	if len(b) < lengthPrefixSize || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("%w: payload of %d bytes is not block aligned", ErrCorrupt, len(b))
	}

	n := binary.BigEndian.Uint32(b)
	if uint64(n) > uint64(len(b)-lengthPrefixSize) {
		return nil, fmt.Errorf("%w: length prefix %d exceeds payload", ErrCorrupt, n)
	}
	return b[lengthPrefixSize : lengthPrefixSize+int(n)], nil
}
