package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const transactionTimeLayout = "2006-01-02 15:04:05"

// Library owns the catalog, the member registry and the transaction log.
// It is not safe for concurrent use.
type Library struct {
	books        []*Book
	members      []*Member
	transactions []string

	// first book per ISBN, kept in step with books
	index map[string]*Book

	store      Store
	now        func() time.Time
	graceDays  int
	dangling   DanglingLoanPolicy
	uniqueness UniquenessPolicy
	logger     *slog.Logger
}

// New returns an empty library persisted through store. A nil store keeps
// everything in memory and makes Load and Save no-ops.
func New(store Store, opts ...Option) *Library {
	l := &Library{
		index:     make(map[string]*Book),
		store:     store,
		now:       time.Now,
		graceDays: DefaultGraceDays,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ------------------ Books ------------------

// AddBook appends b to the catalog. Books without an ISBN or with negative
// stock are refused with ErrInvalidBook.
func (l *Library) AddBook(b Book) error {
	switch {
	case strings.TrimSpace(b.ISBN) == "":
		return fmt.Errorf("%w: missing isbn", ErrInvalidBook)
	case b.Stock < 0:
		return fmt.Errorf("%w: %s has negative stock %d", ErrInvalidBook, b.ISBN, b.Stock)
	}
	if _, exists := l.index[b.ISBN]; exists && l.uniqueness == RejectDuplicates {
		return fmt.Errorf("%w: %s", ErrDuplicateBook, b.ISBN)
	}
	l.appendBook(&b)
	return nil
}

func (l *Library) appendBook(b *Book) {
	l.books = append(l.books, b)
	if _, exists := l.index[b.ISBN]; !exists {
		l.index[b.ISBN] = b
	}
}

// DeleteBook removes every book with isbn and returns how many were removed.
// Open loans for that ISBN are left in place.
func (l *Library) DeleteBook(isbn string) int {
	kept := l.books[:0]
	for _, b := range l.books {
		if b.ISBN != isbn {
			kept = append(kept, b)
		}
	}
	removed := len(l.books) - len(kept)
	clear(l.books[len(kept):])
	l.books = kept
	delete(l.index, isbn)
	return removed
}

// Book returns a copy of the first book with isbn.
func (l *Library) Book(isbn string) (Book, bool) {
	b, ok := l.index[isbn]
	if !ok {
		return Book{}, false
	}
	return *b, true
}

// Books returns a copy of the catalog in insertion order.
func (l *Library) Books() []Book {
	out := make([]Book, 0, len(l.books))
	for _, b := range l.books {
		out = append(out, *b)
	}
	return out
}

// AvailableBooks is Books filtered to those with stock left.
func (l *Library) AvailableBooks() []Book {
	var out []Book
	for _, b := range l.books {
		if b.Available() {
			out = append(out, *b)
		}
	}
	return out
}

// ------------------ Members ------------------

// RegisterMember appends a copy of m to the registry. An empty ID is refused
// with ErrInvalidMember.
func (l *Library) RegisterMember(m Member) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: missing member id", ErrInvalidMember)
	}
	if l.findMember(m.ID) != nil && l.uniqueness == RejectDuplicates {
		return fmt.Errorf("%w: %s", ErrDuplicateMember, m.ID)
	}
	c := m.clone()
	l.members = append(l.members, &c)
	return nil
}

// RemoveMember removes every member with id, regardless of open loans, and
// returns how many were removed.
func (l *Library) RemoveMember(id string) int {
	kept := l.members[:0]
	for _, m := range l.members {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	removed := len(l.members) - len(kept)
	clear(l.members[len(kept):])
	l.members = kept
	return removed
}

// Member returns a copy of the first member with id.
func (l *Library) Member(id string) (Member, bool) {
	m := l.findMember(id)
	if m == nil {
		return Member{}, false
	}
	return m.clone(), true
}

// Members returns a copy of the registry in insertion order.
func (l *Library) Members() []Member {
	out := make([]Member, 0, len(l.members))
	for _, m := range l.members {
		out = append(out, m.clone())
	}
	return out
}

func (l *Library) findMember(id string) *Member {
	for _, m := range l.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// ------------------ Circulation ------------------

// IssueBook lends one copy of isbn to memberID. It returns ErrMemberNotFound,
// ErrBookNotFound or ErrOutOfStock (wrapped) when the loan cannot be made;
// nothing is changed in that case.
func (l *Library) IssueBook(memberID, isbn string) error {
	member, book, err := l.lookup(memberID, isbn)
	if err != nil {
		return err
	}
	now := l.now()
	if !member.BorrowBook(book, now) {
		return fmt.Errorf("%w: %s", ErrOutOfStock, isbn)
	}
	l.record(fmt.Sprintf("%s borrowed %s on %s", member.Name, book.Title, now.Format(transactionTimeLayout)))
	return nil
}

// ReturnBook closes memberID's first loan of isbn and returns the number of
// days it was held past the grace period. ErrLoanNotFound is returned when the
// member does not hold that book.
func (l *Library) ReturnBook(memberID, isbn string) (int, error) {
	member, book, err := l.lookup(memberID, isbn)
	if err != nil {
		return 0, err
	}
	now := l.now()
	overdue, ok := member.ReturnBook(book, now, l.graceDays)
	if !ok {
		return 0, fmt.Errorf("%w: member %s, isbn %s", ErrLoanNotFound, memberID, isbn)
	}
	l.record(fmt.Sprintf("%s returned %s on %s", member.Name, book.Title, now.Format(transactionTimeLayout)))
	return overdue, nil
}

func (l *Library) lookup(memberID, isbn string) (*Member, *Book, error) {
	member := l.findMember(memberID)
	if member == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	book, ok := l.index[isbn]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrBookNotFound, isbn)
	}
	return member, book, nil
}

func (l *Library) record(entry string) {
	l.transactions = append(l.transactions, entry)
}

// Transactions returns the audit log, oldest first.
func (l *Library) Transactions() []string {
	return append([]string(nil), l.transactions...)
}

// ------------------ Persistence ------------------

// Snapshot captures the current state for persistence.
func (l *Library) Snapshot() *Snapshot {
	snap := &Snapshot{
		Books:        l.Books(),
		Members:      make([]MemberSnapshot, 0, len(l.members)),
		Transactions: l.Transactions(),
	}
	for _, m := range l.members {
		snap.Members = append(snap.Members, snapshotMember(m))
	}
	return snap
}

// Save writes the whole library to the store, replacing what was there.
func (l *Library) Save(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	snap := l.Snapshot()
	if err := l.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	l.logger.Debug("Saved library",
		"books", len(snap.Books),
		"members", len(snap.Members),
		"transactions", len(snap.Transactions))
	return nil
}

// Load replaces the in-memory state with the stored snapshot. When nothing
// has been stored yet the library is left as it is. On error the library is
// left unchanged.
func (l *Library) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	snap, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	if snap == nil {
		l.logger.Debug("No stored library found, starting empty")
		return nil
	}
	if err := l.Restore(snap); err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	l.logger.Debug("Loaded library",
		"books", len(l.books),
		"members", len(l.members),
		"transactions", len(l.transactions))
	return nil
}

// Restore rebuilds the library from snap. Books are rebuilt first so that
// loans can be re-linked by ISBN; loans whose book is missing are handled
// according to the DanglingLoanPolicy.
func (l *Library) Restore(snap *Snapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}

	restored := New(l.store)
	for _, b := range snap.Books {
		restored.appendBook(&b)
	}

	for _, ms := range snap.Members {
		m := &Member{
			ID:             ms.ID,
			Name:           ms.Name,
			Contact:        ms.Contact,
			MembershipType: ms.MembershipType,
		}
		for _, ls := range ms.BorrowedBooks {
			borrowedAt, err := parseBorrowedDate(ls.BorrowedDate)
			if err != nil {
				return fmt.Errorf("member %s: %w", ms.ID, err)
			}
			if _, ok := restored.index[ls.ISBN]; !ok {
				keep, err := l.handleDanglingLoan(restored, ms.ID, ls.ISBN)
				if err != nil {
					return err
				}
				if !keep {
					continue
				}
			}
			m.Loans = append(m.Loans, Loan{ISBN: ls.ISBN, BorrowedAt: borrowedAt})
		}
		restored.members = append(restored.members, m)
	}
	restored.transactions = append([]string(nil), snap.Transactions...)

	l.books = restored.books
	l.members = restored.members
	l.transactions = restored.transactions
	l.index = restored.index
	return nil
}

func (l *Library) handleDanglingLoan(restored *Library, memberID, isbn string) (keep bool, err error) {
	switch l.dangling {
	case WarnDanglingLoans:
		l.logger.Warn("Dropping loan for book missing from catalog", "member_id", memberID, "isbn", isbn)
		return false, nil
	case FailOnDanglingLoans:
		return false, fmt.Errorf("%w: member %s, isbn %s", ErrDanglingLoan, memberID, isbn)
	case PlaceholderDanglingLoans:
		l.logger.Warn("Adding placeholder for book missing from catalog", "member_id", memberID, "isbn", isbn)
		restored.appendBook(&Book{ISBN: isbn, Title: "(missing) " + isbn})
		return true, nil
	case DropDanglingLoans:
		return false, nil
	default:
		return false, errors.New("unknown dangling loan policy " + l.dangling.String())
	}
}
