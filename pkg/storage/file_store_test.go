package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFileStorePutGetRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()
	payload := []byte("derived artifact bytes")
	if err := fs.Put(ctx, "artifacts/book-1/buyer-1.pdf", bytes.NewReader(payload), int64(len(payload)), "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	rc, size, err := fs.Get(ctx, "artifacts/book-1/buyer-1.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	if size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), size)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("object bytes mismatch")
	}
}

func TestFileStoreReplaceIsAtomicLastWriterWins(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()
	key := "artifacts/book-1/buyer-1.pdf"
	if err := fs.Put(ctx, key, strings.NewReader("first version"), -1, "application/pdf"); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := fs.Put(ctx, key, strings.NewReader("second version"), -1, "application/pdf"); err != nil {
		t.Fatalf("put second: %v", err)
	}
	rc, _, err := fs.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "second version" {
		t.Fatalf("expected replacement content, got %q", got)
	}
}

func TestFileStoreFailedWriteLeavesPreviousObject(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()
	key := "artifacts/book-1/buyer-1.pdf"
	if err := fs.Put(ctx, key, strings.NewReader("good artifact"), -1, "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := fs.Put(ctx, key, failingReader{}, -1, "application/pdf"); err == nil {
		t.Fatalf("expected put with failing reader to error")
	}
	rc, _, err := fs.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after failed replace: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "good artifact" {
		t.Fatalf("previous object must survive a failed replace, got %q", got)
	}
}

func TestFileStoreMissingObject(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()
	if _, _, err := fs.Get(ctx, "artifacts/none/none.pdf"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist from Get, got %v", err)
	}
	if _, err := fs.Stat(ctx, "artifacts/none/none.pdf"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist from Stat, got %v", err)
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"../outside", "a/../../outside", "/etc/passwd", ""} {
		if err := fs.Put(ctx, key, strings.NewReader("x"), -1, ""); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("simulated read failure")
}
