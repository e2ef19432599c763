package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ReadBooks loads book records from a .parquet, .jsonl or .json file. A .json
// file holds a single array; a .jsonl file holds one book per line.
func ReadBooks(path string) ([]Book, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return readBooksParquet(path)
	case ".jsonl":
		return readBooksJSONL(path)
	case ".json":
		return readBooksJSON(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl, .json)", ext)
	}
}

// WriteBooks writes books to a .parquet, .jsonl or .json file, replacing it.
func WriteBooks(path string, books []Book) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return writeBooksParquet(path, books)
	case ".jsonl":
		return writeBooksJSONL(path, books)
	case ".json":
		data, err := snapshotJSON.MarshalIndent(nonNil(books), "", "    ")
		if err != nil {
			return fmt.Errorf("encode books: %w", err)
		}
		return os.WriteFile(path, append(data, '\n'), 0o644)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl, .json)", ext)
	}
}

func readBooksJSON(path string) ([]Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open books file: %w", err)
	}
	var books []Book
	if err := snapshotJSON.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return books, nil
}

func readBooksJSONL(path string) ([]Book, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open books file: %w", err)
	}
	defer file.Close()

	var books []Book
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var b Book
		if err := snapshotJSON.Unmarshal(line, &b); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		books = append(books, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading books file: %w", err)
	}
	slog.Debug("Finished reading JSONL file", "path", path, "books", len(books), "lines", lineNum)
	return books, nil
}

func writeBooksJSONL(path string, books []Book) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, b := range books {
		line, err := snapshotJSON.Marshal(b)
		if err != nil {
			f.Close()
			return fmt.Errorf("encode book %s: %w", b.ISBN, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	return errors.Join(w.Flush(), f.Close())
}

func readBooksParquet(path string) ([]Book, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "path", path, "num_rows", pf.NumRows())

	reader := parquet.NewGenericReader[Book](pf)
	defer reader.Close()

	var books []Book
	rows := make([]Book, 128)
	for {
		n, err := reader.Read(rows)
		books = append(books, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return books, nil
}

func writeBooksParquet(path string, books []Book) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := parquet.NewGenericWriter[Book](f)
	if _, err := w.Write(books); err != nil {
		f.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return errors.Join(w.Close(), f.Close())
}

// ImportBooks adds books in order and reports how many were added. Records
// refused by AddBook are skipped; their errors are joined into the returned
// error.
func (l *Library) ImportBooks(books []Book) (int, error) {
	var (
		added int
		errs  []error
	)
	for i, b := range books {
		if err := l.AddBook(b); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i+1, err))
			continue
		}
		added++
	}
	return added, errors.Join(errs...)
}
