package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var snapshotJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONFileStore keeps the snapshot in a single pretty-printed JSON document.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore returns a store backed by the file at path. The file does
// not need to exist.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

func (s *JSONFileStore) Path() string { return s.path }

// Load reads and decodes the document. A missing file yields (nil, nil).
func (s *JSONFileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decodeSnapshot(data)
}

// Save encodes snap and replaces the file. The document is written to a
// temporary file in the same directory and renamed into place.
func (s *JSONFileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".library-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	// Empty collections are written as [] rather than null.
	out := Snapshot{
		Books:        nonNil(snap.Books),
		Members:      make([]MemberSnapshot, 0, len(snap.Members)),
		Transactions: nonNil(snap.Transactions),
	}
	for _, m := range snap.Members {
		m.BorrowedBooks = nonNil(m.BorrowedBooks)
		out.Members = append(out.Members, m)
	}
	data, err := snapshotJSON.MarshalIndent(out, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedSnapshot)
	}
	var snap Snapshot
	if err := snapshotJSON.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if err := snap.validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
