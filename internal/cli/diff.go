package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/illarion/secokv/internal/crypto"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff compares the store contents with the JSON object in file
func Diff(ctx context.Context, path, file string) error {
	local, err := readDocument(file)
	if err != nil {
		return err
	}

	kv, passphrase, _, _, err := openStore(ctx, path, "Enter passphrase: ")
	if err != nil {
		return err
	}
	defer kv.Close()
	defer crypto.ClearBytes(passphrase)

	stored, err := kv.GetAllData()
	if err != nil {
		return err
	}

	storedText, err := formatJSON(stored)
	if err != nil {
		return err
	}
	localText, err := formatJSON(local)
	if err != nil {
		return err
	}

	warnPlaintext(path, file)

	out := GenerateUnifiedDiff(filepath.Base(path), file, storedText, localText)
	if out == "" {
		fmt.Println("No differences")
		return nil
	}
	fmt.Print(out)
	return nil
}

// GenerateUnifiedDiff renders a line diff from the stored text to the local
// text. It returns an empty string when both are identical.
func GenerateUnifiedDiff(storedName, localName string, stored, local []byte) string {
	if bytes.Equal(stored, local) {
		return ""
	}

	dmp := diffmatchpatch.New()

	storedStr, localStr := string(stored), string(local)
	a, b, lineArray := dmp.DiffLinesToChars(storedStr, localStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(storedStr, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	fmt.Fprintf(&result, "--- %s\n", storedName)
	fmt.Fprintf(&result, "+++ %s\n", localName)
	result.WriteString(dmp.PatchToText(patches))
	return result.String()
}
