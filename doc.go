// Package secokv is an encrypted, file-backed key-value store.
//
// A Store keeps a Document (string keys to JSON values) in memory and
// persists it as one encrypted file protected by a passphrase:
//
//	kv := secokv.New("wallet.seco", secokv.Header{Name: "wallet", Version: "1.0.0"}, nil)
//	if err := kv.Open(ctx, passphrase, nil); err != nil {
//	    return err
//	}
//	defer kv.Close()
//
//	err := kv.Set(ctx, "person1", secokv.MustValueOf(map[string]any{"name": "JP"}))
//
// Every mutation is written through before it returns, but only when the
// serialized document actually changed. Batch applies several sets and
// deletes with a single write. ChangePassphrase re-encrypts the file at once;
// ChangePassphraseOnNextWrite defers it to the next mutation.
//
// The payload is canonical JSON, gzip-compressed, padded with random noise to
// a multiple of the block size, and sealed with AES-256-GCM under a PBKDF2
// key. The file itself is a BBolt database, which makes every write atomic.
package secokv
