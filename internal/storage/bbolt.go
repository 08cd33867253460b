package storage

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/illarion/secokv/internal/crypto"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // Format version, KDF params, header, timestamps - unencrypted
	PayloadBucket = []byte("payload") // Encrypted payload
)

// Config keys
var (
	ConfigVersion    = []byte("version")
	ConfigCreated    = []byte("created")
	ConfigModified   = []byte("modified")
	ConfigSalt       = []byte("salt")
	ConfigIters      = []byte("iterations")
	ConfigAppName    = []byte("app_name")
	ConfigAppVersion = []byte("app_version")
	ConfigStoreID    = []byte("store_id")
)

// PayloadKey holds the sealed payload inside PayloadBucket.
var PayloadKey = []byte("blob")

// FormatVersion is written to new files.
const FormatVersion = "1"

var (
	ErrNotFound        = errors.New("store file not found")
	ErrCorrupt         = errors.New("store file is corrupt")
	ErrWrongPassphrase = errors.New("wrong passphrase")
)

// Header is application metadata recorded next to the payload
type Header struct {
	Name    string
	Version string
}

// Storage provides BBolt-based storage for one secokv file
type Storage struct {
	db   *bolt.DB
	mode os.FileMode
}

// Open opens or creates a store file. Read-only handles take a shared lock
// and never modify the file.
func Open(path string, mode os.FileMode, readOnly bool, timeout time.Duration) (*Storage, error) {
	db, err := bolt.Open(path, mode, &bolt.Options{Timeout: timeout, ReadOnly: readOnly})
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, ErrNotFound
		case errors.Is(err, berrors.ErrTimeout), errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("failed to open store file: %w", err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	return &Storage{db: db, mode: mode}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the file backing the database
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure if missing and records the header.
// Calling it on an initialized file only refreshes the header.
func (s *Storage) Initialize(header Header) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, _, err := initialize(tx, header)
		return err
	})
}

// initialize lays out the buckets inside tx and records the header
func initialize(tx *bolt.Tx, header Header) (config, payload *bolt.Bucket, err error) {
	for _, bucket := range [][]byte{ConfigBucket, PayloadBucket} {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return nil, nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	config = tx.Bucket(ConfigBucket)
	if config.Get(ConfigVersion) == nil {
		if err := config.Put(ConfigVersion, []byte(FormatVersion)); err != nil {
			return nil, nil, err
		}
		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return nil, nil, err
		}
	}

	if err := config.Put(ConfigAppName, []byte(header.Name)); err != nil {
		return nil, nil, err
	}
	if err := config.Put(ConfigAppVersion, []byte(header.Version)); err != nil {
		return nil, nil, err
	}
	return config, tx.Bucket(PayloadBucket), nil
}

// IsInitialized checks if the database carries the secokv bucket layout
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil && tx.Bucket(PayloadBucket) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// InUse reports whether the file holds something a first write must not
// replace: a sealed payload, or buckets that are not ours. An empty database,
// or our layout without a payload, is what an interrupted first write leaves
// behind and counts as free.
func (s *Storage) InUse() (bool, error) {
	var inUse bool
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			switch string(name) {
			case string(ConfigBucket):
			case string(PayloadBucket):
				if b.Get(PayloadKey) != nil {
					inUse = true
				}
			default:
				inUse = true
			}
			return nil
		})
	})
	return inUse, err
}

// GetKDF retrieves the KDF parameters the current payload was sealed with
func (s *Storage) GetKDF() (*crypto.KDF, error) {
	kdf := &crypto.KDF{}
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("%w: config bucket not found", ErrCorrupt)
		}

		salt := config.Get(ConfigSalt)
		if salt == nil {
			return fmt.Errorf("%w: salt not found", ErrCorrupt)
		}
		// Make a copy since the slice is only valid during the transaction
		kdf.Salt = append([]byte(nil), salt...)

		iters := config.Get(ConfigIters)
		if len(iters) != 4 {
			return fmt.Errorf("%w: iterations not found", ErrCorrupt)
		}
		kdf.Iterations = int(binary.BigEndian.Uint32(iters))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := kdf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return kdf, nil
}

// GetPayload retrieves the sealed payload
func (s *Storage) GetPayload() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		payload := tx.Bucket(PayloadBucket)
		if payload == nil {
			return fmt.Errorf("%w: payload bucket not found", ErrCorrupt)
		}
		data = payload.Get(PayloadKey)
		if data == nil {
			return fmt.Errorf("%w: payload not found", ErrCorrupt)
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), data...)
		return nil
	})
	return data, err
}

// PutPayload stores a sealed payload together with the header and the KDF
// parameters that sealed it. Bucket layout, header, KDF parameters and
// payload are committed in one transaction, so a failed write leaves the file
// exactly as it was.
func (s *Storage) PutPayload(header Header, kdf *crypto.KDF, sealed []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config, payload, err := initialize(tx, header)
		if err != nil {
			return fmt.Errorf("failed to initialize store file: %w", err)
		}

		if err := config.Put(ConfigSalt, kdf.Salt); err != nil {
			return err
		}
		iters := make([]byte, 4)
		binary.BigEndian.PutUint32(iters, uint32(kdf.Iterations))
		if err := config.Put(ConfigIters, iters); err != nil {
			return err
		}
		modified, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigModified, modified); err != nil {
			return err
		}
		return payload.Put(PayloadKey, sealed)
	})
}

// GetHeader retrieves the application header
func (s *Storage) GetHeader() (Header, error) {
	var header Header
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("%w: config bucket not found", ErrCorrupt)
		}
		header.Name = string(config.Get(ConfigAppName))
		header.Version = string(config.Get(ConfigAppVersion))
		return nil
	})
	return header, err
}

func (s *Storage) getTime(key []byte) (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("%w: config bucket not found", ErrCorrupt)
		}
		data := config.Get(key)
		if data == nil {
			return fmt.Errorf("%s time not found", key)
		}
		return t.UnmarshalBinary(data)
	})
	return t, err
}

// GetCreated retrieves the creation timestamp
func (s *Storage) GetCreated() (time.Time, error) {
	return s.getTime(ConfigCreated)
}

// GetModified retrieves the timestamp of the last payload write
func (s *Storage) GetModified() (time.Time, error) {
	return s.getTime(ConfigModified)
}

// GetStoreID retrieves the store ID from config bucket
func (s *Storage) GetStoreID() (string, error) {
	var storeID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigStoreID)
		if data == nil {
			return fmt.Errorf("store_id not found")
		}
		storeID = string(data)
		return nil
	})
	return storeID, err
}

// GetOrCreateStoreID retrieves existing store ID or generates a new one
func (s *Storage) GetOrCreateStoreID() (string, error) {
	storeID, err := s.GetStoreID()
	if err == nil {
		return storeID, nil
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate store ID: %w", err)
	}
	storeID = hex.EncodeToString(b)

	err = s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("%w: config bucket not found", ErrCorrupt)
		}
		return config.Put(ConfigStoreID, []byte(storeID))
	})
	if err != nil {
		return "", err
	}

	return storeID, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// Payload rewrites leave freed pages behind, most visibly after a
// passphrase change.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, s.mode, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Rename over the original so the path never goes missing
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Remove(tmpPath)
		if reopenErr := s.reopen(srcPath); reopenErr != nil {
			return fmt.Errorf("failed to replace database: %w (reopen: %v)", err, reopenErr)
		}
		return fmt.Errorf("failed to replace database: %w", err)
	}

	return s.reopen(srcPath)
}

func (s *Storage) reopen(path string) error {
	db, err := bolt.Open(path, s.mode, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	s.db = db
	return nil
}
