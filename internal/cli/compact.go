package cli

import (
	"fmt"
	"os"

	"github.com/illarion/secokv/internal/storage"
)

// Compact rewrites the store file to reclaim unused space. No passphrase is
// needed.
func Compact(path string) error {
	before, err := fileSize(path)
	if err != nil {
		return err
	}

	if err := storage.Compact(path, storage.Config{}); err != nil {
		return err
	}

	after, err := fileSize(path)
	if err != nil {
		return err
	}
	fmt.Printf("Compacted: %s -> %s\n", formatSize(before), formatSize(after))
	return nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, ErrNotInitialized
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
