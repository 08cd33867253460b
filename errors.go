package secokv

import (
	"context"
	"errors"
	"fmt"

	"github.com/illarion/secokv/internal/codec"
	"github.com/illarion/secokv/internal/storage"
)

var (
	// ErrNotOpened is returned by every operation on a store that has not
	// completed Open, or has been closed.
	ErrNotOpened = errors.New("secokv: store not opened")
	// ErrAlreadyOpened is returned by Open on an opened store.
	ErrAlreadyOpened = errors.New("secokv: store already opened")
	// ErrCorruptData is returned when an existing file can't be decoded.
	ErrCorruptData = errors.New("secokv: corrupt data")
	// ErrTransport wraps read and write failures of the transport.
	ErrTransport = errors.New("secokv: transport failure")
	// ErrWrongPassphrase is wrapped in ErrTransport when the passphrase does
	// not open the file.
	ErrWrongPassphrase = storage.ErrWrongPassphrase
	// ErrInvalidOp is returned by Batch for an operation of unknown kind.
	ErrInvalidOp = errors.New("secokv: invalid batch operation")
)

// transportError classifies a transport failure. Context errors pass through
// unchanged so callers can tell cancellation from I/O failure.
func (s *Store) transportError(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, s.path, err)
	case errors.Is(err, storage.ErrCorrupt), errors.Is(err, codec.ErrCorrupt):
		return fmt.Errorf("%w: %s %s: %w", ErrCorruptData, op, s.path, err)
	default:
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, op, s.path, err)
	}
}
