package secokv

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
)

var errDiskFull = errors.New("disk full")

// memFile is an in-memory stand-in for an encrypted file. The payload is
// kept in the clear; the passphrase that last wrote it gates reads.
type memFile struct {
	mu         sync.Mutex
	exists     bool
	payload    []byte
	passphrase string
	writes     int
	destroyed  int
	failWrites error
}

func (f *memFile) dial(path string, passphrase []byte, header Header) (Transport, error) {
	return &memTransport{file: f, passphrase: string(passphrase)}, nil
}

func (f *memFile) setFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = err
}

func (f *memFile) stats() (writes int, passphrase string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes, f.passphrase
}

type memTransport struct {
	file       *memFile
	passphrase string
}

func (t *memTransport) Exists() (bool, error) {
	t.file.mu.Lock()
	defer t.file.mu.Unlock()
	return t.file.exists, nil
}

func (t *memTransport) Read(ctx context.Context) ([]byte, error) {
	t.file.mu.Lock()
	defer t.file.mu.Unlock()
	if t.passphrase != t.file.passphrase {
		return nil, ErrWrongPassphrase
	}
	return append([]byte(nil), t.file.payload...), nil
}

func (t *memTransport) Write(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.file.mu.Lock()
	defer t.file.mu.Unlock()
	if t.file.failWrites != nil {
		return t.file.failWrites
	}
	t.file.exists = true
	t.file.payload = append([]byte(nil), payload...)
	t.file.passphrase = t.passphrase
	t.file.writes++
	return nil
}

func (t *memTransport) Destroy() {
	t.file.mu.Lock()
	defer t.file.mu.Unlock()
	t.file.destroyed++
}

func openMem(t *testing.T, f *memFile, passphrase string) *Store {
	t.Helper()
	kv := New("mem.seco", testHeader, &Options{BlockSize: 256, Dialer: f.dial})
	if err := kv.Open(context.Background(), []byte(passphrase), nil); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return kv
}

func TestOpenCreatesWithOneWrite(t *testing.T) {
	f := &memFile{}
	openMem(t, f, "pw")
	if writes, pass := f.stats(); writes != 1 || pass != "pw" {
		t.Errorf("Expected one write under pw, got %d under %q", writes, pass)
	}

	// Reopening an existing file reads without writing.
	openMem(t, f, "pw")
	if writes, _ := f.stats(); writes != 1 {
		t.Errorf("Reopen should not write, got %d writes", writes)
	}
}

func TestWriteSuppression(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "pw")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := kv.Set(ctx, "a", Int(1)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if writes, _ := f.stats(); writes != 2 {
		t.Errorf("Identical sets should write once, got %d writes", writes)
	}

	if err := kv.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := kv.Batch(ctx, nil); err != nil {
		t.Fatalf("Empty batch failed: %v", err)
	}
	// A batch that ends where it started does not write either.
	err := kv.Batch(ctx, []Op{SetOp("b", Int(2)), DeleteOp("b")})
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if writes, _ := f.stats(); writes != 2 {
		t.Errorf("No-op mutations should not write, got %d writes", writes)
	}

	// A batch writes once regardless of its length.
	ops := make([]Op, 0, 50)
	for i := 0; i < 50; i++ {
		ops = append(ops, SetOp(fmt.Sprintf("k%d", i), Int(int64(i))))
	}
	if err := kv.Batch(ctx, ops); err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if writes, _ := f.stats(); writes != 3 {
		t.Errorf("Batch should write once, got %d writes", writes)
	}
}

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "pw")
	ctx := context.Background()

	if err := kv.Set(ctx, "a", Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	f.setFailure(errDiskFull)
	err := kv.Set(ctx, "a", Int(2))
	if !errors.Is(err, ErrTransport) || !errors.Is(err, errDiskFull) {
		t.Fatalf("Expected transport error wrapping disk full, got %v", err)
	}
	if got, _ := mustGet(t, kv, "a"); !got.Equal(Int(1)) {
		t.Errorf("Memory changed by failed write: a=%v", got)
	}

	// The retry must write: the baseline did not move.
	f.setFailure(nil)
	if err := kv.Set(ctx, "a", Int(2)); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if writes, _ := f.stats(); writes != 3 {
		t.Errorf("Retry should have written, got %d writes", writes)
	}

	reopened := openMem(t, f, "pw")
	if got, _ := mustGet(t, reopened, "a"); !got.Equal(Int(2)) {
		t.Errorf("Disk content mismatch: a=%v", got)
	}
}

func TestCanceledWrite(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "pw")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kv.Set(ctx, "a", Int(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Errorf("Cancellation should not be reported as transport failure: %v", err)
	}
	if ok, _ := kv.Has("a"); ok {
		t.Error("Canceled set should not change memory")
	}

	if err := kv.Set(context.Background(), "a", Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if writes, _ := f.stats(); writes != 2 {
		t.Errorf("Set after cancellation should write, got %d writes", writes)
	}
}

func TestSetAllDataRebaselines(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "pw")
	ctx := context.Background()

	doc := Document{"a": Int(1)}
	if err := kv.SetAllData(ctx, doc); err != nil {
		t.Fatalf("SetAllData failed: %v", err)
	}
	if err := kv.SetAllData(ctx, doc); err != nil {
		t.Fatalf("SetAllData failed: %v", err)
	}
	if writes, _ := f.stats(); writes != 3 {
		t.Errorf("SetAllData should always write, got %d writes", writes)
	}

	if err := kv.Set(ctx, "a", Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if writes, _ := f.stats(); writes != 3 {
		t.Errorf("Set matching SetAllData content should not write, got %d writes", writes)
	}

	// Mutating the caller's document afterwards has no effect.
	doc["b"] = Int(2)
	if ok, _ := kv.Has("b"); ok {
		t.Error("SetAllData should copy its argument")
	}
}

func TestRotationWithIdenticalSet(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "old")
	ctx := context.Background()

	if err := kv.Set(ctx, "a", Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.ChangePassphraseOnNextWrite([]byte("new")); err != nil {
		t.Fatalf("ChangePassphraseOnNextWrite failed: %v", err)
	}
	if _, pass := f.stats(); pass != "old" {
		t.Fatalf("Rotation should wait for the next write, file is under %q", pass)
	}

	if err := kv.Set(ctx, "a", Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if writes, pass := f.stats(); writes != 3 || pass != "new" {
		t.Errorf("Identical set after rotation should rewrite under new: %d writes under %q", writes, pass)
	}

	// Once rotated, identical sets are suppressed again.
	if err := kv.Set(ctx, "a", Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if writes, _ := f.stats(); writes != 3 {
		t.Errorf("Expected suppression after rotation, got %d writes", writes)
	}
}

func TestChangePassphraseFailureKeepsOldPassphrase(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "old")
	ctx := context.Background()

	f.setFailure(errDiskFull)
	if err := kv.ChangePassphrase(ctx, []byte("new")); !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected transport error, got %v", err)
	}
	f.setFailure(nil)

	if err := kv.Set(ctx, "a", Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, pass := f.stats(); pass != "old" {
		t.Errorf("Failed rotation should keep the old passphrase, file is under %q", pass)
	}

	wrong := New("mem.seco", testHeader, &Options{Dialer: f.dial})
	err := wrong.Open(ctx, []byte("new"), nil)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Expected wrong passphrase transport error, got %v", err)
	}
}

func TestTransportsDestroyed(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "pw")

	if err := kv.ChangePassphraseOnNextWrite([]byte("a")); err != nil {
		t.Fatalf("ChangePassphraseOnNextWrite failed: %v", err)
	}
	if err := kv.ChangePassphrase(context.Background(), []byte("b")); err != nil {
		t.Fatalf("ChangePassphrase failed: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f.mu.Lock()
	destroyed := f.destroyed
	f.mu.Unlock()
	if destroyed != 3 {
		t.Errorf("Expected 3 destroyed transports, got %d", destroyed)
	}
}

func TestInvalidOp(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "pw")

	err := kv.Batch(context.Background(), []Op{SetOp("a", Int(1)), {Kind: OpKind(42), Key: "b"}})
	if !errors.Is(err, ErrInvalidOp) {
		t.Fatalf("Expected ErrInvalidOp, got %v", err)
	}
	if ok, _ := kv.Has("a"); ok {
		t.Error("Invalid batch should not be partially applied")
	}
	if writes, _ := f.stats(); writes != 1 {
		t.Errorf("Invalid batch should not write, got %d writes", writes)
	}
}

func TestUnencodableValue(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "pw")

	if err := kv.Set(context.Background(), "nan", Float(math.NaN())); err == nil {
		t.Fatal("Expected an error storing NaN")
	}
	if ok, _ := kv.Has("nan"); ok {
		t.Error("Failed set should not change memory")
	}
}

func TestConcurrentSets(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "pw")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			if err := kv.Set(context.Background(), key, Int(int64(i))); err != nil {
				t.Errorf("Set(%s) failed: %v", key, err)
			}
			if _, _, err := kv.Get(key); err != nil {
				t.Errorf("Get(%s) failed: %v", key, err)
			}
		}(i)
	}
	wg.Wait()

	if n, _ := kv.Len(); n != 20 {
		t.Errorf("Expected 20 keys, got %d", n)
	}
	reopened := openMem(t, f, "pw")
	if n, _ := reopened.Len(); n != 20 {
		t.Errorf("Expected 20 keys on disk, got %d", n)
	}
}

func TestCompactWithoutSupport(t *testing.T) {
	f := &memFile{}
	kv := openMem(t, f, "pw")
	if err := kv.Compact(context.Background()); err != nil {
		t.Errorf("Compact on a transport without compaction should succeed, got %v", err)
	}
}
