package library

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DanglingLoanPolicy decides what Load does with a persisted loan whose ISBN
// is missing from the persisted books.
type DanglingLoanPolicy int

const (
	// DropDanglingLoans silently forgets the loan. Stock is not adjusted.
	DropDanglingLoans DanglingLoanPolicy = iota
	// WarnDanglingLoans drops the loan and logs a warning.
	WarnDanglingLoans
	// FailOnDanglingLoans aborts the load with ErrDanglingLoan.
	FailOnDanglingLoans
	// PlaceholderDanglingLoans keeps the loan and adds a zero-stock
	// placeholder book for the missing ISBN.
	PlaceholderDanglingLoans
)

var danglingLoanPolicyNames = map[DanglingLoanPolicy]string{
	DropDanglingLoans:        "drop",
	WarnDanglingLoans:        "warn",
	FailOnDanglingLoans:      "fail",
	PlaceholderDanglingLoans: "placeholder",
}

func (p DanglingLoanPolicy) String() string {
	if s, ok := danglingLoanPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("DanglingLoanPolicy(%d)", int(p))
}

// ParseDanglingLoanPolicy accepts drop, warn, fail or placeholder.
func ParseDanglingLoanPolicy(s string) (DanglingLoanPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range danglingLoanPolicyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown dangling loan policy %q (want drop, warn, fail or placeholder)", s)
}

// UniquenessPolicy decides whether AddBook and RegisterMember accept an ISBN
// or member ID that is already present.
type UniquenessPolicy int

const (
	// AllowDuplicates appends unconditionally; lookups use the first match.
	AllowDuplicates UniquenessPolicy = iota
	// RejectDuplicates refuses a second entry with the same identifier.
	RejectDuplicates
)

func (p UniquenessPolicy) String() string {
	switch p {
	case AllowDuplicates:
		return "allow"
	case RejectDuplicates:
		return "reject"
	default:
		return fmt.Sprintf("UniquenessPolicy(%d)", int(p))
	}
}

// ParseUniquenessPolicy accepts allow or reject.
func ParseUniquenessPolicy(s string) (UniquenessPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow":
		return AllowDuplicates, nil
	case "reject":
		return RejectDuplicates, nil
	default:
		return 0, fmt.Errorf("unknown uniqueness policy %q (want allow or reject)", s)
	}
}

// Option configures a Library.
type Option func(*Library)

// WithClock replaces time.Now as the source of borrow and return times.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithGracePeriod sets how many days a loan may run before it is overdue.
func WithGracePeriod(days int) Option {
	return func(l *Library) { l.graceDays = days }
}

func WithDanglingLoanPolicy(p DanglingLoanPolicy) Option {
	return func(l *Library) { l.dangling = p }
}

func WithUniquenessPolicy(p UniquenessPolicy) Option {
	return func(l *Library) { l.uniqueness = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) { l.logger = logger }
}
