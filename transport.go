package secokv

import (
	"context"

	"github.com/illarion/secokv/internal/storage"
)

// Header is application metadata recorded unencrypted in the file. The store
// passes it through without interpreting it.
type Header struct {
	Name    string
	Version string
}

// Transport reads and writes the encrypted payload of one file under one
// passphrase. Write must be atomic: after a failed or interrupted write the
// previous payload is still readable.
type Transport interface {
	Exists() (bool, error)
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, payload []byte) error
	// Destroy releases key material. The transport is not used afterwards.
	Destroy()
}

// Dialer binds a Transport to a file, passphrase and header. The passphrase
// slice belongs to the caller; a Dialer must copy what it keeps.
type Dialer func(path string, passphrase []byte, header Header) (Transport, error)

// compacter is implemented by transports whose file can be compacted.
type compacter interface {
	Compact() error
}

func fileDialer(opts Options) Dialer {
	cfg := opts.storageConfig()
	return func(path string, passphrase []byte, header Header) (Transport, error) {
		h := storage.Header{Name: header.Name, Version: header.Version}
		return storage.NewSession(path, passphrase, h, cfg), nil
	}
}
