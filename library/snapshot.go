package library

import (
	"context"
	"fmt"
	"time"
)

// Snapshot is the persisted representation of a whole library.
type Snapshot struct {
	Books        []Book           `json:"books"`
	Members      []MemberSnapshot `json:"members"`
	Transactions []string         `json:"transactions"`
}

// MemberSnapshot is a member with its loans flattened to ISBN/date pairs.
type MemberSnapshot struct {
	ID             string         `json:"member_id"`
	Name           string         `json:"name"`
	Contact        string         `json:"contact"`
	MembershipType string         `json:"membership_type"`
	BorrowedBooks  []LoanSnapshot `json:"borrowed_books"`
}

// LoanSnapshot is one borrowed book as written to disk.
type LoanSnapshot struct {
	ISBN         string `json:"isbn"`
	BorrowedDate string `json:"borrowed_date"`
}

// Store loads and saves whole-library snapshots. Load returns a nil snapshot
// and nil error when nothing has been persisted yet.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Naive layouts are read as local time; fractional seconds are optional.
var borrowedDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func formatBorrowedDate(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseBorrowedDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range borrowedDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised borrowed_date %q", ErrMalformedSnapshot, s)
}

func snapshotMember(m *Member) MemberSnapshot {
	loans := make([]LoanSnapshot, 0, len(m.Loans))
	for _, l := range m.Loans {
		loans = append(loans, LoanSnapshot{ISBN: l.ISBN, BorrowedDate: formatBorrowedDate(l.BorrowedAt)})
	}
	return MemberSnapshot{
		ID:             m.ID,
		Name:           m.Name,
		Contact:        m.Contact,
		MembershipType: m.MembershipType,
		BorrowedBooks:  loans,
	}
}

// validate rejects structurally valid JSON that cannot describe a library.
func (s *Snapshot) validate() error {
	for i, b := range s.Books {
		if b.ISBN == "" {
			return fmt.Errorf("%w: book %d has no isbn", ErrMalformedSnapshot, i)
		}
		if b.Stock < 0 {
			return fmt.Errorf("%w: book %s has negative stock %d", ErrMalformedSnapshot, b.ISBN, b.Stock)
		}
	}
	for i, m := range s.Members {
		if m.ID == "" {
			return fmt.Errorf("%w: member %d has no member_id", ErrMalformedSnapshot, i)
		}
		for _, l := range m.BorrowedBooks {
			if l.ISBN == "" {
				return fmt.Errorf("%w: member %s has a loan without isbn", ErrMalformedSnapshot, m.ID)
			}
		}
	}
	return nil
}
