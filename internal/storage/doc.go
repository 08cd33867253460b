// Package storage is the encrypted transport behind a secokv store: it turns
// a passphrase and a file path into reads and writes of one opaque payload.
//
// The file is a BBolt database with two buckets:
//   - config: format version, timestamps, KDF salt and iterations, the
//     application header and a random store ID (all unencrypted)
//   - payload: the AES-256-GCM sealed payload under a single key
//
// The unencrypted config bucket lets status and keyring lookups work without
// a passphrase. Every write is one BBolt update transaction, so a reader sees
// either the previous payload or the new one, never a mix.
package storage
