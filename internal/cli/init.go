package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/secokv"
	"github.com/illarion/secokv/internal/crypto"
)

// Init creates a new empty store at path
func Init(ctx context.Context, path string, header secokv.Header) error {
	if _, err := os.Stat(path); err == nil {
		return ErrAlreadyExists
	}

	passphrase, source, err := GetPassphraseForInit()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(passphrase)

	if err := initStore(ctx, path, header, passphrase); err != nil {
		return err
	}
	fmt.Printf("✓ Initialized %s\n", path)

	if source == SourcePrompt {
		OfferToSavePassphrase(path, passphrase)
	}
	return nil
}

func initStore(ctx context.Context, path string, header secokv.Header, passphrase []byte) error {
	kv := secokv.New(path, header, nil)
	if err := kv.Open(ctx, passphrase, nil); err != nil {
		return err
	}
	return kv.Close()
}
