package cli

import (
	"context"
	"fmt"

	"github.com/illarion/secokv"
	"github.com/illarion/secokv/internal/crypto"
	"github.com/illarion/secokv/internal/keyring"
)

// KeyringSave verifies a passphrase and stores it in the OS keyring
func KeyringSave(ctx context.Context, path string) error {
	info, err := readInfo(path)
	if err != nil {
		return err
	}

	passphrase := PassphraseFromEnv()
	if passphrase == nil {
		passphrase, err = ReadPassphrase("Enter passphrase: ")
		if err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(passphrase)

	kv := secokv.New(path, secokv.Header{Name: info.Header.Name, Version: info.Header.Version}, nil)
	if err := kv.Open(ctx, passphrase, nil); err != nil {
		return err
	}
	kv.Close()

	storeID, err := keyringAccount(path)
	if err != nil {
		return err
	}

	if err := keyring.SavePassphrase(storeID, passphrase); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	fmt.Println("Passphrase saved to keyring")
	return nil
}

// KeyringDelete removes the store's passphrase from the OS keyring
func KeyringDelete(path string) error {
	info, err := readInfo(path)
	if err != nil {
		return err
	}

	if info.StoreID == "" {
		fmt.Println("No passphrase stored in keyring")
		return nil
	}
	if err := keyring.DeletePassphrase(info.StoreID); err != nil {
		fmt.Println("No passphrase stored in keyring")
		return nil
	}
	fmt.Println("Passphrase removed from keyring")
	return nil
}

// KeyringStatus reports whether a passphrase is stored for the store
func KeyringStatus(path string) error {
	info, err := readInfo(path)
	if err != nil {
		return err
	}

	if keyring.HasPassphrase(info.StoreID) {
		fmt.Println("Passphrase: stored in keyring")
	} else {
		fmt.Println("Passphrase: not stored")
	}
	return nil
}
