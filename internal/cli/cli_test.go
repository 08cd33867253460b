package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/illarion/secokv"
	"github.com/illarion/secokv/internal/keyring"
	"github.com/illarion/secokv/internal/storage"
	gokeyring "github.com/zalando/go-keyring"
)

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvFile, "")
	if got := ResolvePath(""); got != DefaultFile {
		t.Errorf("Expected default %s, got %s", DefaultFile, got)
	}

	t.Setenv(EnvFile, "/tmp/from-env.db")
	if got := ResolvePath(""); got != "/tmp/from-env.db" {
		t.Errorf("Expected env path, got %s", got)
	}
	if got := ResolvePath("explicit.db"); got != "explicit.db" {
		t.Errorf("Expected explicit path, got %s", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 bytes"},
		{1023, "1023 bytes"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.size); got != tt.want {
			t.Errorf("formatSize(%d) = %s, want %s", tt.size, got, tt.want)
		}
	}
}

func TestGenerateUnifiedDiff(t *testing.T) {
	stored := []byte("{\n  \"a\": 1,\n  \"b\": 2\n}\n")
	local := []byte("{\n  \"a\": 1,\n  \"b\": 3\n}\n")

	if out := GenerateUnifiedDiff("store", "local.json", stored, stored); out != "" {
		t.Errorf("Identical input should produce no diff, got %q", out)
	}

	out := GenerateUnifiedDiff("store", "local.json", stored, local)
	if !strings.HasPrefix(out, "--- store\n+++ local.json\n") {
		t.Errorf("Missing file headers:\n%s", out)
	}
	if !strings.Contains(out, "@@ -") {
		t.Errorf("Diff should contain a hunk:\n%s", out)
	}

	var removed, added bool
	for _, line := range strings.Split(out, "\n")[2:] {
		removed = removed || (strings.HasPrefix(line, "-") && strings.Contains(line, "2"))
		added = added || (strings.HasPrefix(line, "+") && strings.Contains(line, "3"))
	}
	if !removed || !added {
		t.Errorf("Diff should show the changed line:\n%s", out)
	}
}

func TestParseValueArg(t *testing.T) {
	v, err := parseValueArg(`{"port":8080}`, false)
	if err != nil {
		t.Fatalf("parseValueArg failed: %v", err)
	}
	if v.Kind() != secokv.KindObject {
		t.Errorf("Expected object, got %s", v.Kind())
	}

	if _, err := parseValueArg("not json", false); err == nil {
		t.Error("Bare words should need -s")
	}

	v, err = parseValueArg("not json", true)
	if err != nil {
		t.Fatalf("parseValueArg failed: %v", err)
	}
	if s, ok := v.AsString(); !ok || s != "not json" {
		t.Errorf("Expected string value, got %v", v)
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"a":[1,2],"b":null}`), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	doc, err := readDocument(good)
	if err != nil {
		t.Fatalf("readDocument failed: %v", err)
	}
	if len(doc) != 2 {
		t.Errorf("Expected 2 keys, got %d", len(doc))
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`[1,2]`), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := readDocument(bad); err == nil {
		t.Error("A JSON array is not a document")
	}
	if _, err := readDocument(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Missing file should fail")
	}
}

func TestFormatJSON(t *testing.T) {
	doc := secokv.Document{
		"z": secokv.String("<&>"),
		"a": secokv.Array(secokv.Int(1)),
	}
	out, err := formatJSON(doc)
	if err != nil {
		t.Fatalf("formatJSON failed: %v", err)
	}
	want := "{\n  \"a\": [\n    1\n  ],\n  \"z\": \"<&>\"\n}\n"
	if string(out) != want {
		t.Errorf("formatJSON mismatch:\n got %q\nwant %q", out, want)
	}
}

func TestCompletionScript(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish"} {
		script, ok := completionScript(shell)
		if !ok || !strings.Contains(script, "secokv") {
			t.Errorf("Missing completion script for %s", shell)
		}
	}
	if _, ok := completionScript("tcsh"); ok {
		t.Error("tcsh should not be supported")
	}
}

func TestIsYes(t *testing.T) {
	for _, answer := range []string{"y\n", "Y", " yes \n"} {
		if !isYes(answer) {
			t.Errorf("%q should be yes", answer)
		}
	}
	for _, answer := range []string{"", "\n", "n", "nope"} {
		if isYes(answer) {
			t.Errorf("%q should not be yes", answer)
		}
	}
}

func createStore(t *testing.T, passphrase string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	header := secokv.Header{Name: "cli-test", Version: "0.1"}
	if err := initStore(context.Background(), path, header, []byte(passphrase)); err != nil {
		t.Fatalf("initStore failed: %v", err)
	}
	return path
}

func TestOpenStoreFromEnv(t *testing.T) {
	gokeyring.MockInit()
	path := createStore(t, "env-secret")

	t.Setenv(EnvPassphrase, "env-secret")
	kv, passphrase, source, info, err := openStore(context.Background(), path, "unused: ")
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer kv.Close()

	if source != SourceEnv || string(passphrase) != "env-secret" {
		t.Errorf("Expected env passphrase, got %q from %d", passphrase, source)
	}
	if info.Header.Name != "cli-test" {
		t.Errorf("Header not read: %+v", info.Header)
	}

	// Writes through the CLI keep the recorded header.
	if err := kv.Set(context.Background(), "k", secokv.Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	after, err := storage.ReadInfo(path)
	if err != nil {
		t.Fatalf("ReadInfo failed: %v", err)
	}
	if after.Header.Name != "cli-test" || after.Header.Version != "0.1" {
		t.Errorf("Header replaced by write: %+v", after.Header)
	}
}

func TestOpenStoreWrongEnvPassphrase(t *testing.T) {
	gokeyring.MockInit()
	path := createStore(t, "right")

	t.Setenv(EnvPassphrase, "wrong")
	_, _, _, _, err := openStore(context.Background(), path, "unused: ")
	if !errors.Is(err, secokv.ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase, got %v", err)
	}
}

func TestOpenStoreFromKeyring(t *testing.T) {
	gokeyring.MockInit()
	path := createStore(t, "kept-in-keyring")

	storeID, err := storage.StoreID(path)
	if err != nil {
		t.Fatalf("StoreID failed: %v", err)
	}
	if err := keyring.SavePassphrase(storeID, []byte("kept-in-keyring")); err != nil {
		t.Fatalf("SavePassphrase failed: %v", err)
	}

	t.Setenv(EnvPassphrase, "")
	kv, passphrase, source, _, err := openStore(context.Background(), path, "unused: ")
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer kv.Close()

	if source != SourceKeyring || string(passphrase) != "kept-in-keyring" {
		t.Errorf("Expected keyring passphrase, got %q from %d", passphrase, source)
	}
}

func TestOpenStoreMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	if _, _, _, _, err := openStore(context.Background(), path, "unused: "); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Opening a missing store must not create it")
	}
}

func TestKeyringAccountForEnvCreatedStore(t *testing.T) {
	gokeyring.MockInit()
	path := filepath.Join(t.TempDir(), "env.db")

	t.Setenv(EnvPassphrase, "from-env")
	if err := Init(context.Background(), path, secokv.Header{Name: "cli-test"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	info, err := storage.ReadInfo(path)
	if err != nil {
		t.Fatalf("ReadInfo failed: %v", err)
	}
	if info.StoreID != "" {
		t.Fatalf("Expected no store ID after init from env, got %q", info.StoreID)
	}

	storeID, err := keyringAccount(path)
	if err != nil {
		t.Fatalf("keyringAccount failed: %v", err)
	}
	if storeID == "" {
		t.Fatal("Expected a store ID for the keyring account")
	}
	again, err := keyringAccount(path)
	if err != nil || again != storeID {
		t.Errorf("Expected stable store ID %q, got %q (%v)", storeID, again, err)
	}

	info, err = storage.ReadInfo(path)
	if err != nil {
		t.Fatalf("ReadInfo failed: %v", err)
	}
	if info.StoreID != storeID {
		t.Errorf("Expected store ID %q recorded in file, got %q", storeID, info.StoreID)
	}

	// A passphrase saved under that account is found on the next open.
	if err := keyring.SavePassphrase(storeID, []byte("from-env")); err != nil {
		t.Fatalf("SavePassphrase failed: %v", err)
	}
	t.Setenv(EnvPassphrase, "")
	kv, _, source, _, err := openStore(context.Background(), path, "unused: ")
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer kv.Close()
	if source != SourceKeyring {
		t.Errorf("Expected keyring source, got %d", source)
	}
}

func TestCommandsReturnErrors(t *testing.T) {
	gokeyring.MockInit()
	ctx := context.Background()
	path := createStore(t, "right")

	t.Setenv(EnvPassphrase, "right")
	if err := Get(ctx, path, "absent", false); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
	if err := Init(ctx, path, secokv.Header{}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
	if err := Set(ctx, path, "k", "{not json", false); err == nil {
		t.Error("Expected error for invalid JSON value")
	}
	if err := Set(ctx, path, "k", "1", false); err != nil {
		t.Errorf("Set failed: %v", err)
	}

	t.Setenv(EnvPassphrase, "wrong")
	if err := Get(ctx, path, "k", false); !errors.Is(err, secokv.ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase, got %v", err)
	}
	if err := Passwd(ctx, path); !errors.Is(err, secokv.ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase from passwd, got %v", err)
	}

	missing := filepath.Join(t.TempDir(), "absent.db")
	if err := Compact(missing); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from compact, got %v", err)
	}
	if err := KeyringStatus(missing); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from keyring status, got %v", err)
	}
	if err := Status(missing); err != nil {
		t.Errorf("Status of a missing store should not fail: %v", err)
	}
	if err := Completion("tcsh"); err == nil {
		t.Error("Expected error for unknown shell")
	}
}
