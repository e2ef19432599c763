package library

import "time"

// DefaultGraceDays is the number of days a loan may be held before it counts
// as overdue.
const DefaultGraceDays = 14

// Book is a catalog record. Stock is the number of copies available to borrow.
type Book struct {
	ISBN   string `json:"isbn" parquet:"isbn"`
	Title  string `json:"title" parquet:"title"`
	Author string `json:"author" parquet:"author"`
	Genre  string `json:"genre" parquet:"genre"`
	Stock  int    `json:"stock" parquet:"stock"`
}

// UpdateStock adds count (which may be negative) to the stock. Callers are
// responsible for not driving stock below zero.
func (b *Book) UpdateStock(count int) {
	b.Stock += count
}

// Available reports whether at least one copy can be borrowed.
func (b *Book) Available() bool { return b.Stock > 0 }

// Loan records that a member borrowed a copy of the book with ISBN at
// BorrowedAt.
type Loan struct {
	ISBN       string
	BorrowedAt time.Time
}

// Member represents a registered library member.
type Member struct {
	ID             string
	Name           string
	Contact        string
	MembershipType string
	Loans          []Loan
}

// BorrowBook takes one copy of book if any is in stock. The same ISBN may be
// borrowed more than once.
func (m *Member) BorrowBook(book *Book, at time.Time) bool {
	if book.Stock <= 0 {
		return false
	}
	m.Loans = append(m.Loans, Loan{ISBN: book.ISBN, BorrowedAt: at})
	book.UpdateStock(-1)
	return true
}

// ReturnBook closes the first loan for book.ISBN, puts the copy back in stock
// and reports how many days past the grace period it was held. ok is false
// when the member has no loan for that ISBN.
func (m *Member) ReturnBook(book *Book, now time.Time, graceDays int) (overdueDays int, ok bool) {
	for i, loan := range m.Loans {
		if loan.ISBN != book.ISBN {
			continue
		}
		m.Loans = append(m.Loans[:i:i], m.Loans[i+1:]...)
		book.UpdateStock(1)
		return OverdueDays(loan.BorrowedAt, now, graceDays), true
	}
	return 0, false
}

// BorrowedISBNs lists the ISBN of every open loan in borrow order.
func (m *Member) BorrowedISBNs() []string {
	isbns := make([]string, 0, len(m.Loans))
	for _, l := range m.Loans {
		isbns = append(isbns, l.ISBN)
	}
	return isbns
}

// OverdueDays counts whole days elapsed between borrowedAt and now beyond
// graceDays. It never returns a negative number.
func OverdueDays(borrowedAt, now time.Time, graceDays int) int {
	days := int(now.Sub(borrowedAt) / (24 * time.Hour))
	if over := days - graceDays; over > 0 {
		return over
	}
	return 0
}

func (m *Member) clone() Member {
	c := *m
	c.Loans = append([]Loan(nil), m.Loans...)
	return c
}
