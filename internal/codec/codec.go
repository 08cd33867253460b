package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrCorrupt is returned when a payload cannot be shrunk or decompressed.
var ErrCorrupt = errors.New("corrupt payload")

// Codec encodes documents for storage. The zero value uses DefaultBlockSize.
type Codec struct {
	BlockSize int
}

func (c Codec) blockSize() int {
	if c.BlockSize <= 0 {
		return DefaultBlockSize
	}
	return c.BlockSize
}

// Marshal returns the canonical JSON form of v: object keys sorted, no HTML
// escaping, no trailing newline. Equal documents always marshal to equal
// bytes, which is what the change detector fingerprints.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Encode compresses and expands already-marshaled JSON.
func (c Codec) Encode(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(plain); err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	return Expand(buf.Bytes(), c.blockSize())
}

// Decode shrinks and decompresses a payload produced by Encode, returning
// the JSON bytes. Parsing them is left to the caller.
func (c Codec) Decode(payload []byte) ([]byte, error) {
	compressed, err := Shrink(payload, c.blockSize())
	if err != nil {
		return nil, err
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return plain, nil
}
