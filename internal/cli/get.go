package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/illarion/secokv"
	"github.com/illarion/secokv/internal/crypto"
)

// Get prints the value stored under key. With raw set, string values are
// printed without quotes.
func Get(ctx context.Context, path, key string, raw bool) error {
	kv, passphrase, source, _, err := openStore(ctx, path, "Enter passphrase: ")
	if err != nil {
		return err
	}
	defer kv.Close()
	defer crypto.ClearBytes(passphrase)

	v, ok, err := kv.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if s, isString := v.AsString(); raw && isString {
		fmt.Println(s)
	} else {
		out, err := formatJSON(v)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
	}

	if source == SourcePrompt {
		OfferToSavePassphrase(path, passphrase)
	}
	return nil
}

// Keys lists the keys of the store, one per line
func Keys(ctx context.Context, path string) error {
	kv, passphrase, _, _, err := openStore(ctx, path, "Enter passphrase: ")
	if err != nil {
		return err
	}
	defer kv.Close()
	defer crypto.ClearBytes(passphrase)

	keys, err := kv.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

// Dump prints the whole document as indented JSON
func Dump(ctx context.Context, path string) error {
	kv, passphrase, _, _, err := openStore(ctx, path, "Enter passphrase: ")
	if err != nil {
		return err
	}
	defer kv.Close()
	defer crypto.ClearBytes(passphrase)

	doc, err := kv.GetAllData()
	if err != nil {
		return err
	}
	out, err := formatJSON(doc)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// formatJSON renders v as indented JSON with sorted object keys and a
// trailing newline.
func formatJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseValueArg turns a command line argument into a value. Without
// asString the argument must be valid JSON.
func parseValueArg(arg string, asString bool) (secokv.Value, error) {
	if asString {
		return secokv.String(arg), nil
	}
	v, err := secokv.ParseValue([]byte(arg))
	if err != nil {
		return secokv.Value{}, fmt.Errorf("value is not valid JSON (use -s to store it as a string): %w", err)
	}
	return v, nil
}

// readDocument loads a JSON object from a file, or stdin when file is "-"
func readDocument(file string) (secokv.Document, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		var buf bytes.Buffer
		_, err = buf.ReadFrom(os.Stdin)
		data = buf.Bytes()
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	doc, err := secokv.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	return doc, nil
}
