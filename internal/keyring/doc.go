// Package keyring caches store passphrases in the OS keyring, keyed by the
// random store ID recorded in each file.
package keyring
