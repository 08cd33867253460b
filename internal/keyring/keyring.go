package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "secokv"

// ErrNotFound is returned when no passphrase is stored for a store ID
var ErrNotFound = keyring.ErrNotFound

// SavePassphrase stores a passphrase in the OS keyring under the store ID
func SavePassphrase(storeID string, passphrase []byte) error {
	if storeID == "" {
		return errors.New("empty store ID")
	}
	return keyring.Set(serviceName, storeID, string(passphrase))
}

// GetPassphrase retrieves a passphrase from the OS keyring
func GetPassphrase(storeID string) ([]byte, error) {
	secret, err := keyring.Get(serviceName, storeID)
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

// DeletePassphrase removes a passphrase from the OS keyring
func DeletePassphrase(storeID string) error {
	return keyring.Delete(serviceName, storeID)
}

// HasPassphrase checks if a passphrase is stored for the store ID
func HasPassphrase(storeID string) bool {
	if storeID == "" {
		return false
	}
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}
