package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/secokv"
	"github.com/illarion/secokv/internal/crypto"
)

// Set stores value under key
func Set(ctx context.Context, path, key, value string, asString bool) error {
	v, err := parseValueArg(value, asString)
	if err != nil {
		return err
	}

	kv, passphrase, source, _, err := openStore(ctx, path, "Enter passphrase: ")
	if err != nil {
		return err
	}
	defer kv.Close()
	defer crypto.ClearBytes(passphrase)

	if err := kv.Set(ctx, key, v); err != nil {
		return err
	}
	fmt.Printf("set: %s\n", key)

	if source == SourcePrompt {
		OfferToSavePassphrase(path, passphrase)
	}
	return nil
}

// Remove deletes keys in one write and compacts the file
func Remove(ctx context.Context, path string, keys []string) error {
	kv, passphrase, _, _, err := openStore(ctx, path, "Enter passphrase: ")
	if err != nil {
		return err
	}
	defer kv.Close()
	defer crypto.ClearBytes(passphrase)

	ops := make([]secokv.Op, 0, len(keys))
	var removed []string
	for _, key := range keys {
		ok, err := kv.Has(key)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "warning: %s not in store\n", key)
			continue
		}
		ops = append(ops, secokv.DeleteOp(key))
		removed = append(removed, key)
	}

	if len(ops) == 0 {
		return nil
	}
	if err := kv.Batch(ctx, ops); err != nil {
		return err
	}
	for _, key := range removed {
		fmt.Printf("removed: %s\n", key)
	}

	if err := kv.Compact(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}
	return nil
}

// Load replaces the whole document with the JSON object in file
func Load(ctx context.Context, path, file string) error {
	doc, err := readDocument(file)
	if err != nil {
		return err
	}

	kv, passphrase, _, _, err := openStore(ctx, path, "Enter passphrase: ")
	if err != nil {
		return err
	}
	defer kv.Close()
	defer crypto.ClearBytes(passphrase)

	if err := kv.SetAllData(ctx, doc); err != nil {
		return err
	}
	fmt.Printf("loaded: %d keys\n", len(doc))
	warnPlaintext(path, file)

	if err := kv.Compact(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}
	return nil
}
