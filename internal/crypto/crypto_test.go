package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	kdf, err := NewKDF(MinIters)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}

	if len(kdf.Salt) != SaltSize {
		t.Fatalf("Salt size mismatch: got %d, want %d", len(kdf.Salt), SaltSize)
	}

	k1 := kdf.DeriveKey([]byte("passphrase"))
	k2 := kdf.DeriveKey([]byte("passphrase"))
	if !bytes.Equal(k1, k2) {
		t.Error("Same passphrase and salt should derive the same key")
	}
	if len(k1) != KeySize {
		t.Errorf("Key size mismatch: got %d, want %d", len(k1), KeySize)
	}

	k3 := kdf.DeriveKey([]byte("other"))
	if bytes.Equal(k1, k3) {
		t.Error("Different passphrases should derive different keys")
	}
}

func TestNewKDFDefaultsAndMinimum(t *testing.T) {
	kdf, err := NewKDF(0)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}
	if kdf.Iterations != DefaultIters {
		t.Errorf("Expected default iterations %d, got %d", DefaultIters, kdf.Iterations)
	}

	if _, err := NewKDF(10); !errors.Is(err, ErrWeakKDF) {
		t.Errorf("Expected ErrWeakKDF, got %v", err)
	}

	bad := &KDF{Salt: []byte("short"), Iterations: DefaultIters}
	if err := bad.Validate(); err == nil {
		t.Error("Expected validation error for short salt")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	kdf, err := NewKDF(MinIters)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}
	enc := NewEncryptor(kdf.DeriveKey([]byte("secret")))
	defer enc.Destroy()

	plaintext := []byte(`{"person1":{"name":"JP"}}`)
	ct1, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	ct2, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(ct1, ct2) {
		t.Error("Two encryptions should use different nonces")
	}

	got, err := enc.Decrypt(ct1)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Plaintext mismatch: got %s, want %s", got, plaintext)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	kdf, err := NewKDF(MinIters)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}
	enc := NewEncryptor(kdf.DeriveKey([]byte("right")))
	defer enc.Destroy()
	other := NewEncryptor(kdf.DeriveKey([]byte("wrong")))
	defer other.Destroy()

	ct, err := enc.Encrypt([]byte("data"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := other.Decrypt(ct); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed, got %v", err)
	}

	ct[len(ct)-1] ^= 0xff
	if _, err := enc.Decrypt(ct); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed for tampered data, got %v", err)
	}

	if _, err := enc.Decrypt([]byte("short")); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("Expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte("sensitive")
	ClearBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("Byte %d not cleared", i)
		}
	}

	src := []byte("copy me")
	dup := CloneBytes(src)
	ClearBytes(src)
	if string(dup) != "copy me" {
		t.Error("CloneBytes should be independent of the source")
	}
	if CloneBytes(nil) != nil {
		t.Error("CloneBytes(nil) should be nil")
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !ConstantTimeCompare([]byte("abc"), []byte("abc")) {
		t.Error("Equal slices should compare equal")
	}
	if ConstantTimeCompare([]byte("abc"), []byte("abd")) {
		t.Error("Different slices should not compare equal")
	}
}
