package secokv

import (
	"os"
	"time"

	"github.com/illarion/secokv/internal/codec"
	"github.com/illarion/secokv/internal/crypto"
	"github.com/illarion/secokv/internal/storage"
)

// Options tunes a Store. A nil *Options, or any zero field, selects the
// default.
type Options struct {
	// Iterations is the PBKDF2 iteration count for newly sealed files.
	// Defaults to 210000; values below 1000 are rejected at write time.
	Iterations int

	// BlockSize is the padding granularity of the payload. Every reader and
	// writer of a file must agree on it. Defaults to 32 KiB.
	BlockSize int

	// FileMode is used when the file is created. Defaults to 0600.
	FileMode os.FileMode

	// LockTimeout bounds the wait for the file lock held by another handle.
	// Defaults to one second.
	LockTimeout time.Duration

	// Dialer replaces the encrypted file transport.
	Dialer Dialer
}

// DefaultOptions are the values used for zero fields.
var DefaultOptions = Options{
	Iterations:  crypto.DefaultIters,
	BlockSize:   codec.DefaultBlockSize,
	FileMode:    storage.FilePermSecure,
	LockTimeout: storage.DefaultLockTimeout,
}

func (o *Options) withDefaults() Options {
	out := DefaultOptions
	if o == nil {
		return out
	}
	if o.Iterations > 0 {
		out.Iterations = o.Iterations
	}
	if o.BlockSize > 0 {
		out.BlockSize = o.BlockSize
	}
	if o.FileMode != 0 {
		out.FileMode = o.FileMode
	}
	if o.LockTimeout > 0 {
		out.LockTimeout = o.LockTimeout
	}
	out.Dialer = o.Dialer
	return out
}

func (o Options) storageConfig() storage.Config {
	return storage.Config{
		Iterations:  o.Iterations,
		FileMode:    o.FileMode,
		LockTimeout: o.LockTimeout,
	}
}
