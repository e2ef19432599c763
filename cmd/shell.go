package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-catalog/library"
)

const menu = `Library Management System
  1. Add Book
  2. Delete Book
  3. Register Member
  4. Remove Member
  5. Issue Book
  6. Return Book
  7. View Transactions
  8. View Books
  9. View Registered Members
 10. Save and Exit`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive menu",
		Long: `Shell runs the numbered menu. Choices may be given by number or by name
("add book", "issue book", ...). The library is saved on "Save and Exit", when
input ends and when the shell is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			lib, closeStore, err := a.openLibrary(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			in := cmd.InOrStdin()
			done := make(chan struct{})
			sh := &shell{
				lines:   scanLines(in, done),
				out:     cmd.OutOrStdout(),
				lib:     lib,
				prompts: isTerminal(in),
			}
			sh.run(ctx)
			close(done)
			if ctx.Err() != nil {
				slog.Info("Interrupted, saving before exit")
			}

			// An interrupt cancels ctx; the session is still saved.
			if err := lib.Save(context.WithoutCancel(ctx)); err != nil {
				return fmt.Errorf("error saving data: %w", err)
			}
			fmt.Fprintln(sh.out, "Data saved. Goodbye!")
			return nil
		},
	}
}

// isTerminal reports whether r is an interactive terminal. Prompts and the
// menu are only printed for terminals so piped scripts produce clean output.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// scanLines feeds input lines to the returned channel until r is exhausted or
// done is closed. Reading happens off the shell loop so an interrupt is seen
// while the user has not typed anything.
func scanLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

type shell struct {
	lines   <-chan string
	done    <-chan struct{}
	out     io.Writer
	lib     *library.Library
	prompts bool
}

// errInputClosed ends the session: input ran out or the shell was interrupted.
var errInputClosed = errors.New("input closed")

// run processes commands until "exit", end of input or ctx is cancelled.
func (s *shell) run(ctx context.Context) {
	s.done = ctx.Done()
	for ctx.Err() == nil {
		if s.prompts {
			fmt.Fprintf(s.out, "\n%s\n", menu)
		}
		choice, err := s.ask("Enter your choice")
		if err != nil {
			return
		}

		switch strings.ToLower(choice) {
		case "1", "add book":
			err = s.handleAddBook()
		case "2", "delete book":
			err = s.handleDeleteBook()
		case "3", "register member", "add member":
			err = s.handleRegisterMember()
		case "4", "remove member":
			err = s.handleRemoveMember()
		case "5", "issue book", "issue":
			err = s.handleIssueBook()
		case "6", "return book", "return":
			err = s.handleReturnBook()
		case "7", "transactions", "list transactions":
			printTransactions(s.out, s.lib.Transactions())
		case "8", "list books":
			printBooks(s.out, s.lib.Books())
		case "available books":
			printBooks(s.out, s.lib.AvailableBooks())
		case "9", "list members":
			printMembers(s.out, s.lib.Members())
		case "10", "exit", "quit":
			return
		case "":
		default:
			fmt.Fprintln(s.out, "Unknown choice. Enter a number from 1 to 10.")
		}
		if errors.Is(err, errInputClosed) {
			return
		}
	}
}

func (s *shell) ask(label string) (string, error) {
	if s.prompts {
		fmt.Fprintf(s.out, "%s: ", label)
	}
	select {
	case <-s.done:
		return "", errInputClosed
	case line, ok := <-s.lines:
		if !ok {
			return "", errInputClosed
		}
		return strings.TrimSpace(line), nil
	}
}

// askAll prompts for each label in turn.
func (s *shell) askAll(labels ...string) ([]string, error) {
	answers := make([]string, len(labels))
	for i, label := range labels {
		v, err := s.ask(label)
		if err != nil {
			return nil, err
		}
		answers[i] = v
	}
	return answers, nil
}

func (s *shell) handleAddBook() error {
	v, err := s.askAll("Enter ISBN", "Enter Title", "Enter Author", "Enter Genre", "Enter Stock")
	if err != nil {
		return err
	}
	if v[0] == "" {
		fmt.Fprintln(s.out, "ISBN must not be empty.")
		return nil
	}
	stock, err := strconv.Atoi(v[4])
	if err != nil || stock < 0 {
		fmt.Fprintf(s.out, "Invalid stock: %s\n", v[4])
		return nil
	}
	if err := s.lib.AddBook(library.Book{ISBN: v[0], Title: v[1], Author: v[2], Genre: v[3], Stock: stock}); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return nil
	}
	fmt.Fprintln(s.out, "Book added successfully!")
	return nil
}

func (s *shell) handleDeleteBook() error {
	isbn, err := s.ask("Enter ISBN of the book to delete")
	if err != nil {
		return err
	}
	if n := s.lib.DeleteBook(isbn); n == 0 {
		fmt.Fprintf(s.out, "No book with ISBN %s.\n", isbn)
		return nil
	}
	fmt.Fprintln(s.out, "Book deleted successfully!")
	return nil
}

func (s *shell) handleRegisterMember() error {
	v, err := s.askAll("Enter Member ID", "Enter Name", "Enter Contact", "Enter Membership Type")
	if err != nil {
		return err
	}
	if v[0] == "" {
		fmt.Fprintln(s.out, "Member ID must not be empty.")
		return nil
	}
	if err := s.lib.RegisterMember(library.Member{ID: v[0], Name: v[1], Contact: v[2], MembershipType: v[3]}); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return nil
	}
	fmt.Fprintln(s.out, "Member registered successfully!")
	return nil
}

func (s *shell) handleRemoveMember() error {
	id, err := s.ask("Enter Member ID to remove")
	if err != nil {
		return err
	}
	if n := s.lib.RemoveMember(id); n == 0 {
		fmt.Fprintf(s.out, "No member with ID %s.\n", id)
		return nil
	}
	fmt.Fprintln(s.out, "Member removed successfully!")
	return nil
}

func (s *shell) handleIssueBook() error {
	v, err := s.askAll("Enter Member ID", "Enter Book ISBN")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, describeIssueError(s.lib.IssueBook(v[0], v[1])))
	return nil
}

func (s *shell) handleReturnBook() error {
	v, err := s.askAll("Enter Member ID", "Enter Book ISBN")
	if err != nil {
		return err
	}
	overdue, err := s.lib.ReturnBook(v[0], v[1])
	if err != nil {
		fmt.Fprintf(s.out, "Return failed: %v\n", err)
		return nil
	}
	fmt.Fprintf(s.out, "Book returned successfully! Overdue by %d days.\n", overdue)
	return nil
}
