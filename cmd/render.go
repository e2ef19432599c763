package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"library-catalog/library"
)

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintf(w, "%-15s %-30s %-25s %-15s %5s\n", "ISBN", "Title", "Author", "Genre", "Stock")
	fmt.Fprintln(w, strings.Repeat("-", 94))
	for _, b := range books {
		fmt.Fprintf(w, "%s %s %s %s %5d\n",
			cell(b.ISBN, 15),
			cell(b.Title, 30),
			cell(b.Author, 25),
			cell(b.Genre, 15),
			b.Stock)
	}
}

func printMembers(w io.Writer, members []library.Member) {
	if len(members) == 0 {
		fmt.Fprintln(w, "No members registered.")
		return
	}
	fmt.Fprintf(w, "%-12s %-25s %-25s %-12s %s\n", "Member ID", "Name", "Contact", "Type", "Borrowed Books")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, m := range members {
		borrowed := "None"
		if isbns := m.BorrowedISBNs(); len(isbns) > 0 {
			borrowed = strings.Join(isbns, ", ")
		}
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			cell(m.ID, 12),
			cell(m.Name, 25),
			cell(m.Contact, 25),
			cell(m.MembershipType, 12),
			borrowed)
	}
}

func printTransactions(w io.Writer, entries []string) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No transactions recorded yet.")
		return
	}
	for _, e := range entries {
		fmt.Fprintln(w, e)
	}
}

// describeIssueError turns an IssueBook error into a user message.
func describeIssueError(err error) string {
	res, ok := library.IssueResultOf(err)
	if !ok {
		return fmt.Sprintf("Issue failed: %v", err)
	}
	switch res {
	case library.MemberNotFound:
		return "Issue failed: no member with that ID."
	case library.BookNotFound:
		return "Issue failed: no book with that ISBN."
	case library.OutOfStock:
		return "Issue failed: no copies left in stock."
	default:
		return "Book issued successfully!"
	}
}

// truncateString shortens s to at most maxWidth terminal columns, never
// splitting a character.
func truncateString(s string, maxWidth int) string {
	return runewidth.Truncate(s, maxWidth, "...")
}

// cell truncates s and pads it to exactly width columns.
func cell(s string, width int) string {
	return runewidth.FillRight(truncateString(s, width), width)
}
