package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/illarion/secokv/internal/crypto"
)

const (
	FilePermSecure     = 0600 // File: owner rw only
	DefaultLockTimeout = time.Second
)

// Config tunes a Session. Zero values select defaults.
type Config struct {
	Iterations  int           // PBKDF2 iterations for newly sealed payloads
	FileMode    os.FileMode   // Mode for newly created files
	LockTimeout time.Duration // How long to wait for the file lock
}

func (c Config) fileMode() os.FileMode {
	if c.FileMode == 0 {
		return FilePermSecure
	}
	return c.FileMode
}

func (c Config) lockTimeout() time.Duration {
	if c.LockTimeout <= 0 {
		return DefaultLockTimeout
	}
	return c.LockTimeout
}

// Session binds a file path to one passphrase. It is replaced, never
// re-keyed, when the passphrase changes.
type Session struct {
	path       string
	passphrase []byte
	header     Header
	cfg        Config

	kdf *crypto.KDF
	enc *crypto.Encryptor
}

// NewSession creates a session. The passphrase is copied; the caller may
// clear its own slice.
func NewSession(path string, passphrase []byte, header Header, cfg Config) *Session {
	return &Session{
		path:       path,
		passphrase: crypto.CloneBytes(passphrase),
		header:     header,
		cfg:        cfg,
	}
}

// Path returns the file the session reads and writes
func (s *Session) Path() string {
	return s.path
}

// Exists reports whether the backing file holds a store. A file left empty
// by an interrupted first write does not count; the next write fills it.
// Files that are not BBolt databases count, so Read reports them as corrupt
// instead of a write replacing them.
func (s *Session) Exists() (bool, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	db, err := Open(s.path, s.cfg.fileMode(), true, s.cfg.lockTimeout())
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case errors.Is(err, ErrCorrupt):
		return true, nil
	case err != nil:
		return false, err
	}
	defer db.Close()

	return db.InUse()
}

// Read decrypts and returns the stored payload
func (s *Session) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.passphrase == nil {
		return nil, errors.New("session destroyed")
	}

	db, err := Open(s.path, s.cfg.fileMode(), true, s.cfg.lockTimeout())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if ok, err := db.IsInitialized(); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: not a secokv file", ErrCorrupt)
	}

	kdf, err := db.GetKDF()
	if err != nil {
		return nil, err
	}

	sealed, err := db.GetPayload()
	if err != nil {
		return nil, err
	}

	enc := s.encryptor(kdf)
	plain, err := enc.Decrypt(sealed)
	switch {
	case errors.Is(err, crypto.ErrAuthFailed):
		return nil, ErrWrongPassphrase
	case errors.Is(err, crypto.ErrInvalidCiphertext):
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	case err != nil:
		return nil, err
	}

	return plain, nil
}

// Write seals payload and replaces the stored one atomically. The file is
// created if missing.
func (s *Session) Write(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.passphrase == nil {
		return errors.New("session destroyed")
	}

	if s.enc == nil {
		kdf, err := crypto.NewKDF(s.cfg.Iterations)
		if err != nil {
			return fmt.Errorf("failed to create KDF: %w", err)
		}
		s.encryptor(kdf)
	}

	sealed, err := s.enc.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("failed to encrypt payload: %w", err)
	}

	// Last chance to back out before the file is touched.
	if err := ctx.Err(); err != nil {
		return err
	}

	db, err := Open(s.path, s.cfg.fileMode(), false, s.cfg.lockTimeout())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PutPayload(s.header, s.kdf, sealed); err != nil {
		return fmt.Errorf("failed to store payload: %w", err)
	}
	return nil
}

// Destroy zeroes the passphrase and derived key. The session is unusable
// afterwards.
func (s *Session) Destroy() {
	crypto.ClearBytes(s.passphrase)
	s.passphrase = nil
	s.dropKey()
}

// encryptor returns an encryptor for kdf, reusing the cached key when the
// parameters match the last ones seen by this session.
func (s *Session) encryptor(kdf *crypto.KDF) *crypto.Encryptor {
	if s.enc != nil && s.kdf.Iterations == kdf.Iterations && bytes.Equal(s.kdf.Salt, kdf.Salt) {
		return s.enc
	}

	s.dropKey()
	s.kdf = kdf
	s.enc = crypto.NewEncryptor(kdf.DeriveKey(s.passphrase))
	return s.enc
}

func (s *Session) dropKey() {
	if s.enc != nil {
		s.enc.Destroy()
	}
	s.enc = nil
	s.kdf = nil
}

// Info is the unencrypted metadata of a store file
type Info struct {
	Header     Header
	StoreID    string
	Created    time.Time
	Modified   time.Time
	Iterations int
	Size       int64
}

// ReadInfo reads unencrypted metadata without a passphrase
func ReadInfo(path string) (*Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	db, err := Open(path, FilePermSecure, true, DefaultLockTimeout)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	info := &Info{Size: st.Size()}
	if info.Header, err = db.GetHeader(); err != nil {
		return nil, err
	}
	if kdf, err := db.GetKDF(); err == nil {
		info.Iterations = kdf.Iterations
	}
	info.StoreID, _ = db.GetStoreID()
	info.Created, _ = db.GetCreated()
	info.Modified, _ = db.GetModified()
	return info, nil
}

// StoreID returns the file's store ID, creating one if needed
func StoreID(path string) (string, error) {
	db, err := Open(path, FilePermSecure, false, DefaultLockTimeout)
	if err != nil {
		return "", err
	}
	defer db.Close()
	return db.GetOrCreateStoreID()
}

// Compact reclaims unused space in the file at path
func Compact(path string, cfg Config) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}

	db, err := Open(path, cfg.fileMode(), false, cfg.lockTimeout())
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Compact()
}

// Compact reclaims unused space in the session's file
func (s *Session) Compact() error {
	return Compact(s.path, s.cfg)
}
