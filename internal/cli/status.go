package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/illarion/secokv/internal/git"
	"github.com/illarion/secokv/internal/keyring"
)

// Status prints the unencrypted metadata of the store. No passphrase is
// needed.
func Status(path string) error {
	info, err := readInfo(path)
	if errors.Is(err, ErrNotInitialized) {
		fmt.Printf("No store found at %s\n", path)
		fmt.Println("Run 'secokv init' to create one")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Store: %s\n", path)
	fmt.Printf("Size: %s\n", formatSize(info.Size))
	if info.Header.Name != "" {
		fmt.Printf("Application: %s %s\n", info.Header.Name, info.Header.Version)
	}
	if !info.Created.IsZero() {
		fmt.Printf("Created: %s\n", info.Created.Format(time.RFC3339))
	}
	if !info.Modified.IsZero() {
		fmt.Printf("Modified: %s\n", info.Modified.Format(time.RFC3339))
	}
	if info.Iterations > 0 {
		fmt.Printf("Encryption: AES-256-GCM, PBKDF2-SHA256 (%d iterations)\n", info.Iterations)
	}

	switch {
	case info.StoreID == "":
		fmt.Println("Keyring: not linked")
	case keyring.HasPassphrase(info.StoreID):
		fmt.Printf("Store ID: %s\n", info.StoreID)
		fmt.Println("Keyring: passphrase stored")
	default:
		fmt.Printf("Store ID: %s\n", info.StoreID)
		fmt.Println("Keyring: not stored")
	}

	fmt.Print(git.Format(path, git.Check(path)))
	return nil
}
