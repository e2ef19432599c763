package library

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"
)

// SQLiteStore persists snapshots into normalised SQLite tables. Every Save
// replaces all rows in one transaction and records a BLAKE2b digest of the
// snapshot, which Load verifies.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the DB.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

const (
	metaChecksum = "snapshot_checksum"
	metaSavedAt  = "saved_at"
)

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// position columns preserve insertion order; identifiers are not unique.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            position INTEGER PRIMARY KEY,
            isbn TEXT NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            genre TEXT NOT NULL,
            stock INTEGER NOT NULL CHECK (stock >= 0)
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            position INTEGER PRIMARY KEY,
            member_id TEXT NOT NULL,
            name TEXT NOT NULL,
            contact TEXT NOT NULL,
            membership_type TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            member_position INTEGER NOT NULL REFERENCES members(position) ON DELETE CASCADE,
            seq INTEGER NOT NULL,
            isbn TEXT NOT NULL,
            borrowed_date TEXT NOT NULL,
            PRIMARY KEY (member_position, seq)
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            seq INTEGER PRIMARY KEY,
            entry TEXT NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

// Save replaces every stored row with the contents of snap.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}
	sum, err := snapshotChecksum(snap)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"loans", "members", "books", "transactions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertBooks(ctx, tx, snap.Books); err != nil {
		return err
	}
	if err := insertMembers(ctx, tx, snap.Members); err != nil {
		return err
	}
	if err := insertTransactions(ctx, tx, snap.Transactions); err != nil {
		return err
	}

	meta := map[string]string{
		metaChecksum: sum,
		metaSavedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES(?,?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, k, v); err != nil {
			return fmt.Errorf("write meta %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func insertBooks(ctx context.Context, tx *sql.Tx, books []Book) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO books(position,isbn,title,author,genre,stock) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, b := range books {
		if _, err := stmt.ExecContext(ctx, i, b.ISBN, b.Title, b.Author, b.Genre, b.Stock); err != nil {
			return fmt.Errorf("insert book %s: %w", b.ISBN, err)
		}
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, members []MemberSnapshot) error {
	memberStmt, err := tx.PrepareContext(ctx, `INSERT INTO members(position,member_id,name,contact,membership_type) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer memberStmt.Close()
	loanStmt, err := tx.PrepareContext(ctx, `INSERT INTO loans(member_position,seq,isbn,borrowed_date) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer loanStmt.Close()

	for i, m := range members {
		if _, err := memberStmt.ExecContext(ctx, i, m.ID, m.Name, m.Contact, m.MembershipType); err != nil {
			return fmt.Errorf("insert member %s: %w", m.ID, err)
		}
		for j, l := range m.BorrowedBooks {
			if _, err := loanStmt.ExecContext(ctx, i, j, l.ISBN, l.BorrowedDate); err != nil {
				return fmt.Errorf("insert loan %s for member %s: %w", l.ISBN, m.ID, err)
			}
		}
	}
	return nil
}

func insertTransactions(ctx context.Context, tx *sql.Tx, entries []string) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions(seq,entry) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e); err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

// Load reads the stored snapshot. A database that has never been saved to
// yields (nil, nil).
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	var want string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, metaChecksum).Scan(&want)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checksum: %w", err)
	}

	snap := &Snapshot{}
	if snap.Books, err = s.loadBooks(ctx); err != nil {
		return nil, err
	}
	if snap.Members, err = s.loadMembers(ctx); err != nil {
		return nil, err
	}
	if snap.Transactions, err = s.loadTransactions(ctx); err != nil {
		return nil, err
	}

	got, err := snapshotChecksum(snap)
	if err != nil {
		return nil, err
	}
	if got != want {
		return nil, fmt.Errorf("%w: stored %s, computed %s", ErrChecksumMismatch, want, got)
	}
	return snap, nil
}

func (s *SQLiteStore) loadBooks(ctx context.Context) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT isbn,title,author,genre,stock FROM books ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Genre, &b.Stock); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *SQLiteStore) loadMembers(ctx context.Context) ([]MemberSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT position,member_id,name,contact,membership_type FROM members ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []MemberSnapshot{}
	positions := map[int64]int{}
	for rows.Next() {
		var (
			pos int64
			m   MemberSnapshot
		)
		if err := rows.Scan(&pos, &m.ID, &m.Name, &m.Contact, &m.MembershipType); err != nil {
			return nil, err
		}
		m.BorrowedBooks = []LoanSnapshot{}
		positions[pos] = len(members)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	loanRows, err := s.db.QueryContext(ctx, `SELECT member_position,isbn,borrowed_date FROM loans ORDER BY member_position, seq`)
	if err != nil {
		return nil, err
	}
	defer loanRows.Close()
	for loanRows.Next() {
		var (
			pos int64
			l   LoanSnapshot
		)
		if err := loanRows.Scan(&pos, &l.ISBN, &l.BorrowedDate); err != nil {
			return nil, err
		}
		i, ok := positions[pos]
		if !ok {
			return nil, fmt.Errorf("%w: loan for unknown member position %d", ErrMalformedSnapshot, pos)
		}
		members[i].BorrowedBooks = append(members[i].BorrowedBooks, l)
	}
	return members, loanRows.Err()
}

func (s *SQLiteStore) loadTransactions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entry FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []string{}
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// snapshotChecksum hashes the canonical JSON encoding of snap.
func snapshotChecksum(snap *Snapshot) (string, error) {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
