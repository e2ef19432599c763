package library

import "errors"

// Sentinel errors returned by Library operations and stores.
var (
	ErrMemberNotFound  = errors.New("member not found")
	ErrBookNotFound    = errors.New("book not found")
	ErrOutOfStock      = errors.New("book is out of stock")
	ErrLoanNotFound    = errors.New("member has no loan for this book")
	ErrDuplicateBook   = errors.New("a book with this ISBN already exists")
	ErrDuplicateMember = errors.New("a member with this ID already exists")
	ErrInvalidBook     = errors.New("invalid book")
	ErrInvalidMember   = errors.New("invalid member")

	// ErrDanglingLoan is returned by Load under FailOnDanglingLoans when a
	// persisted loan references an ISBN missing from the books section.
	ErrDanglingLoan = errors.New("loan references a book that is not in the catalog")

	// ErrMalformedSnapshot wraps any decode failure of a persisted snapshot.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrChecksumMismatch means a stored snapshot does not match its digest.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)

// IssueResult classifies the outcome of IssueBook.
type IssueResult int

const (
	Issued IssueResult = iota
	MemberNotFound
	BookNotFound
	OutOfStock
)

func (r IssueResult) String() string {
	switch r {
	case Issued:
		return "issued"
	case MemberNotFound:
		return "member not found"
	case BookNotFound:
		return "book not found"
	case OutOfStock:
		return "out of stock"
	default:
		return "unknown"
	}
}

// IssueResultOf maps the error returned by IssueBook to an IssueResult.
// Errors that are not issue outcomes map to -1 with ok=false.
func IssueResultOf(err error) (IssueResult, bool) {
	switch {
	case err == nil:
		return Issued, true
	case errors.Is(err, ErrMemberNotFound):
		return MemberNotFound, true
	case errors.Is(err, ErrBookNotFound):
		return BookNotFound, true
	case errors.Is(err, ErrOutOfStock):
		return OutOfStock, true
	default:
		return -1, false
	}
}
