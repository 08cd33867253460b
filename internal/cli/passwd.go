package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/secokv/internal/crypto"
	"github.com/illarion/secokv/internal/keyring"
)

// Passwd re-encrypts the store under a new passphrase
func Passwd(ctx context.Context, path string) error {
	kv, current, _, info, err := openStore(ctx, path, "Enter current passphrase: ")
	if err != nil {
		return err
	}
	defer kv.Close()
	defer crypto.ClearBytes(current)

	next, err := ReadPassphraseConfirm("Enter new passphrase: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(next)

	if err := kv.ChangePassphrase(ctx, next); err != nil {
		return err
	}

	// Refresh the keyring whenever the store has an ID, so a stale entry
	// never outlives the old passphrase.
	if info.StoreID != "" && keyring.HasPassphrase(info.StoreID) {
		if err := keyring.SavePassphrase(info.StoreID, next); err == nil {
			fmt.Println("Keyring updated with new passphrase")
		}
	}

	if err := kv.Compact(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("passphrase changed successfully")
	return nil
}
