package secokv

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/illarion/secokv/internal/codec"
)

type state uint8

const (
	stateClosed state = iota
	stateOpened
)

// Store is a passphrase-protected key-value document persisted as a single
// encrypted file.
//
// Every mutation is written through before it returns: the change is applied
// to a copy of the document, the copy is serialized and, when its
// fingerprint differs from what is already on disk, written. Only then does
// the copy replace the live document. A failed write leaves memory, disk and
// the fingerprint baseline as they were.
//
// A Store serializes its own callers. Two Stores on the same file are not
// coordinated; the last writer wins.
type Store struct {
	path   string
	header Header
	opts   Options
	codec  codec.Codec
	dial   Dialer

	mu              sync.RWMutex
	state           state
	doc             Document
	transport       Transport
	detector        changeDetector
	rotationPending bool
}

// New returns a closed Store for the file at path. Nothing is read or
// written until Open.
func New(path string, header Header, opts *Options) *Store {
	o := opts.withDefaults()
	dial := o.Dialer
	if dial == nil {
		dial = fileDialer(o)
	}
	return &Store{
		path:   path,
		header: header,
		opts:   o,
		codec:  codec.Codec{BlockSize: o.BlockSize},
		dial:   dial,
	}
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Header returns the application header passed to New.
func (s *Store) Header() Header { return s.header }

func (s *Store) String() string { return fmt.Sprintf("<secokv.Store: %s>", s.path) }

func (s *Store) requireOpened() error {
	if s.state != stateOpened {
		return ErrNotOpened
	}
	return nil
}

// Open binds the store to passphrase. An existing file is read and decoded;
// otherwise the file is created holding initial (nil means empty) and the
// store starts with that document. initial is ignored for existing files.
func (s *Store) Open(ctx context.Context, passphrase []byte, initial Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateOpened {
		return ErrAlreadyOpened
	}

	t, err := s.dial(s.path, passphrase, s.header)
	if err != nil {
		return s.transportError("open", err)
	}

	doc, fp, err := s.load(ctx, t, initial)
	if err != nil {
		t.Destroy()
		return err
	}

	s.transport = t
	s.doc = doc
	s.detector.commit(fp)
	s.rotationPending = false
	s.state = stateOpened
	return nil
}

func (s *Store) load(ctx context.Context, t Transport, initial Document) (Document, fingerprint, error) {
	exists, err := t.Exists()
	if err != nil {
		return nil, fingerprint{}, s.transportError("open", err)
	}

	if !exists {
		doc := initial.Clone()
		plain, err := codec.Marshal(doc)
		if err != nil {
			return nil, fingerprint{}, err
		}
		if err := s.write(ctx, t, plain); err != nil {
			return nil, fingerprint{}, err
		}
		return doc, sum(plain), nil
	}

	payload, err := t.Read(ctx)
	if err != nil {
		return nil, fingerprint{}, s.transportError("read", err)
	}
	plain, err := s.codec.Decode(payload)
	if err != nil {
		return nil, fingerprint{}, s.transportError("decode", err)
	}
	doc, err := ParseDocument(plain)
	if err != nil {
		return nil, fingerprint{}, fmt.Errorf("%w: parse %s: %w", ErrCorruptData, s.path, err)
	}

	// Fingerprint our own serialization, not the bytes found on disk, so an
	// unchanged document is recognized even if another writer formatted it
	// differently.
	canonical, err := codec.Marshal(doc)
	if err != nil {
		return nil, fingerprint{}, err
	}
	return doc, sum(canonical), nil
}

func (s *Store) write(ctx context.Context, t Transport, plain []byte) error {
	payload, err := s.codec.Encode(plain)
	if err != nil {
		return err
	}
	if err := t.Write(ctx, payload); err != nil {
		return s.transportError("write", err)
	}
	return nil
}

// persist makes doc the store's document, writing it unless it is already
// on disk. force skips the fingerprint comparison. Callers hold s.mu.
func (s *Store) persist(ctx context.Context, doc Document, force bool) error {
	plain, err := codec.Marshal(doc)
	if err != nil {
		return err
	}

	fp, changed := s.detector.shouldWrite(plain)
	if !changed && !force && !s.rotationPending {
		s.doc = doc
		return nil
	}

	if err := s.write(ctx, s.transport, plain); err != nil {
		return err
	}

	s.doc = doc
	s.detector.commit(fp)
	s.rotationPending = false
	return nil
}

// Close destroys the transport, wiping passphrase and key material, and
// returns the store to its unopened state. Closing a closed store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return nil
	}

	s.transport.Destroy()
	s.transport = nil
	s.doc = nil
	s.detector.reset()
	s.rotationPending = false
	s.state = stateClosed
	return nil
}

// Get returns the value stored under key and whether it was present.
func (s *Store) Get(key string) (Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireOpened(); err != nil {
		return Value{}, false, err
	}
	v, ok := s.doc[key]
	return v, ok, nil
}

// GetInto decodes the value stored under key into out. It reports false,
// leaving out untouched, when key is absent.
func (s *Store) GetInto(key string, out any) (bool, error) {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := v.Decode(out); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// Has reports whether key is present.
func (s *Store) Has(key string) (bool, error) {
	_, ok, err := s.Get(key)
	return ok, err
}

// Len returns the number of keys.
func (s *Store) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireOpened(); err != nil {
		return 0, err
	}
	return len(s.doc), nil
}

// Keys returns all keys, sorted.
func (s *Store) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireOpened(); err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(s.doc)), nil
}

// Set stores v under key.
func (s *Store) Set(ctx context.Context, key string, v Value) error {
	return s.Batch(ctx, []Op{SetOp(key, v)})
}

// Delete removes key. Deleting an absent key does not write.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.Batch(ctx, []Op{DeleteOp(key)})
}

// Batch applies ops in order, later entries overriding earlier ones, then
// writes the result at most once.
func (s *Store) Batch(ctx context.Context, ops []Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOpened(); err != nil {
		return err
	}
	if err := validate(ops); err != nil {
		return err
	}

	doc := s.doc.Clone()
	apply(doc, ops)
	return s.persist(ctx, doc, false)
}

// GetAllData returns a copy of the whole document.
func (s *Store) GetAllData() (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireOpened(); err != nil {
		return nil, err
	}
	return s.doc.Clone(), nil
}

// SetAllData replaces the whole document and always writes, even if doc
// equals the current content. The written content becomes the new baseline
// for change detection.
func (s *Store) SetAllData(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOpened(); err != nil {
		return err
	}
	return s.persist(ctx, doc.Clone(), true)
}

// ChangePassphraseOnNextWrite switches to a new passphrase without writing.
// The file stays readable with the old passphrase until the next write,
// which happens on the next mutation even if it leaves the content unchanged.
func (s *Store) ChangePassphraseOnNextWrite(passphrase []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOpened(); err != nil {
		return err
	}

	t, err := s.dial(s.path, passphrase, s.header)
	if err != nil {
		return s.transportError("rekey", err)
	}

	s.transport.Destroy()
	s.transport = t
	s.rotationPending = true
	return nil
}

// ChangePassphrase switches to a new passphrase and rewrites the file under
// it immediately. If the write fails the old passphrase stays in effect.
func (s *Store) ChangePassphrase(ctx context.Context, passphrase []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOpened(); err != nil {
		return err
	}

	t, err := s.dial(s.path, passphrase, s.header)
	if err != nil {
		return s.transportError("rekey", err)
	}

	prev := s.transport
	s.transport = t
	if err := s.persist(ctx, s.doc, true); err != nil {
		s.transport = prev
		t.Destroy()
		return err
	}

	prev.Destroy()
	return nil
}

// Compact reclaims unused space in the backing file. Transports that don't
// support compaction make this a no-op.
func (s *Store) Compact(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOpened(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c, ok := s.transport.(compacter)
	if !ok {
		return nil
	}
	if err := c.Compact(); err != nil {
		return s.transportError("compact", err)
	}
	return nil
}
