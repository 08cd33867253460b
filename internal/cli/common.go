package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/secokv"
	"github.com/illarion/secokv/internal/git"
	"github.com/illarion/secokv/internal/storage"
)

const (
	// EnvFile names the environment variable holding the default store path
	EnvFile = "SECOKV_FILE"
	// DefaultFile is used when neither a flag nor SECOKV_FILE names a store
	DefaultFile = "secokv.db"
)

var (
	ErrNotInitialized = errors.New("store not initialized")
	ErrAlreadyExists  = errors.New("store already exists")
	ErrKeyNotFound    = errors.New("key not found")
)

// ResolvePath picks the store file: the explicit flag value, then
// SECOKV_FILE, then DefaultFile.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvFile); env != "" {
		return env
	}
	return DefaultFile
}

// readInfo loads the unencrypted metadata of an existing store
func readInfo(path string) (*storage.Info, error) {
	info, err := storage.ReadInfo(path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	return info, err
}

// openStore opens the existing store at path, resolving its passphrase.
// The header already in the file is kept so later writes don't replace it.
// The caller closes the store and clears the passphrase.
func openStore(ctx context.Context, path, prompt string) (*secokv.Store, []byte, PassphraseSource, *storage.Info, error) {
	info, err := readInfo(path)
	if err != nil {
		return nil, nil, 0, nil, err
	}

	kv := secokv.New(path, secokv.Header{Name: info.Header.Name, Version: info.Header.Version}, nil)
	verify := func(passphrase []byte) error {
		return kv.Open(ctx, passphrase, nil)
	}

	passphrase, source, err := GetPassphraseWithRetry(prompt, info.StoreID, verify)
	if err != nil {
		return nil, nil, source, nil, err
	}
	return kv, passphrase, source, info, nil
}

// HandleError prints err and exits with status 1. Commands return their
// errors so deferred cleanup runs before the process exits.
func HandleError(err error) {
	switch {
	case errors.Is(err, ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: store not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'secokv init' first\n")
	case errors.Is(err, ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: store already exists\n")
		fmt.Fprintf(os.Stderr, "Use 'secokv status' to see current state\n")
	case errors.Is(err, secokv.ErrWrongPassphrase):
		fmt.Fprintf(os.Stderr, "Error: wrong passphrase\n")
	case errors.Is(err, secokv.ErrCorruptData):
		fmt.Fprintf(os.Stderr, "Error: store file is corrupt: %s\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

// warnPlaintext flags a plaintext JSON file that git could pick up
func warnPlaintext(path, file string) {
	if file == "-" {
		return
	}
	status := git.Check(path, file)
	for _, f := range status.TrackedPlaintext {
		fmt.Fprintf(os.Stderr, "warning: plaintext %s is tracked by git\n", f)
	}
	for _, f := range status.ExposedPlaintext {
		fmt.Fprintf(os.Stderr, "warning: plaintext %s not in .gitignore\n", f)
	}
}
