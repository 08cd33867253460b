// Package crypto provides the cryptographic primitives behind a secokv file.
//
// Payload encryption uses AES-256-GCM with:
//   - 32-byte key derived from the passphrase via PBKDF2
//   - 12-byte random nonce per write, stored in front of the ciphertext
//   - Authenticated encryption, so a wrong passphrase and a tampered blob
//     are indistinguishable and both fail with ErrAuthFailed
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt (stored unencrypted next to the blob)
//   - 210,000 iterations by default (OWASP minimum recommendation)
//
// Memory safety:
//   - Use ClearBytes() to zero passphrases and keys after use
//   - Call Encryptor.Destroy() when a session is replaced or closed
package crypto
