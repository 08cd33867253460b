package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/illarion/secokv"
	"github.com/illarion/secokv/internal/crypto"
	"github.com/illarion/secokv/internal/keyring"
	"github.com/illarion/secokv/internal/storage"
	"golang.org/x/term"
)

// EnvPassphrase names the environment variable consulted before the keyring
// and the terminal prompt.
const EnvPassphrase = "SECOKV_PASSPHRASE"

// PassphraseSource tells where a passphrase came from
type PassphraseSource int

const (
	SourceEnv PassphraseSource = iota
	SourceKeyring
	SourcePrompt
)

// ReadPassphrase reads a passphrase from the terminal without echoing
func ReadPassphrase(prompt string) ([]byte, error) {
	fmt.Print(prompt)

	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// ReadPassphraseConfirm reads a passphrase twice and ensures they match
func ReadPassphraseConfirm(prompt string) ([]byte, error) {
	first, err := ReadPassphrase(prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(first)

	second, err := ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if len(first) == 0 {
		return nil, errors.New("passphrase must not be empty")
	}
	if !crypto.ConstantTimeCompare(first, second) {
		return nil, errors.New("passphrases do not match")
	}

	return crypto.CloneBytes(first), nil
}

// PassphraseFromEnv returns a copy of SECOKV_PASSPHRASE, or nil if unset
func PassphraseFromEnv() []byte {
	passphrase := os.Getenv(EnvPassphrase)
	if passphrase == "" {
		return nil
	}
	return []byte(passphrase)
}

// GetPassphraseForInit reads the passphrase for a new store: environment
// first, then a confirmed prompt.
func GetPassphraseForInit() ([]byte, PassphraseSource, error) {
	if passphrase := PassphraseFromEnv(); passphrase != nil {
		return passphrase, SourceEnv, nil
	}
	passphrase, err := ReadPassphraseConfirm("Enter passphrase: ")
	return passphrase, SourcePrompt, err
}

// GetPassphraseWithRetry resolves a passphrase from the environment, the
// keyring or the terminal, in that order, and checks it with verify. A
// keyring entry that verify rejects is deleted and the user is prompted.
// The caller clears the returned passphrase.
func GetPassphraseWithRetry(prompt, storeID string, verify func([]byte) error) ([]byte, PassphraseSource, error) {
	if passphrase := PassphraseFromEnv(); passphrase != nil {
		if err := verify(passphrase); err != nil {
			crypto.ClearBytes(passphrase)
			return nil, SourceEnv, err
		}
		return passphrase, SourceEnv, nil
	}

	if storeID != "" {
		if passphrase, err := keyring.GetPassphrase(storeID); err == nil {
			err := verify(passphrase)
			if err == nil {
				return passphrase, SourceKeyring, nil
			}
			crypto.ClearBytes(passphrase)
			if !errors.Is(err, secokv.ErrWrongPassphrase) {
				return nil, SourceKeyring, err
			}
			fmt.Fprintln(os.Stderr, "Keyring passphrase is stale, removing it")
			_ = keyring.DeletePassphrase(storeID)
		}
	}

	passphrase, err := ReadPassphrase(prompt)
	if err != nil {
		return nil, SourcePrompt, err
	}
	if err := verify(passphrase); err != nil {
		crypto.ClearBytes(passphrase)
		return nil, SourcePrompt, err
	}
	return passphrase, SourcePrompt, nil
}

// keyringAccount returns the store ID used as keyring account for the store
// at path, assigning one if the store has none yet.
func keyringAccount(path string) (string, error) {
	return storage.StoreID(path)
}

// OfferToSavePassphrase asks whether to cache a typed passphrase in the
// keyring for the store at path. It does nothing when stdin is not a
// terminal.
func OfferToSavePassphrase(path string, passphrase []byte) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return
	}
	storeID, err := keyringAccount(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to read store ID: %s\n", err)
		return
	}
	if keyring.HasPassphrase(storeID) {
		return
	}

	fmt.Print("Save passphrase to keyring? [y/N]: ")
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return
	}
	if !isYes(answer) {
		return
	}

	if err := keyring.SavePassphrase(storeID, passphrase); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Println("Passphrase saved to keyring")
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
