package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Add, delete and list catalog books",
	}
	cmd.AddCommand(newBookAddCmd(a))
	cmd.AddCommand(newBookDeleteCmd(a))
	cmd.AddCommand(newBookListCmd(a))
	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	var b library.Book

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		Example: `  library book add --isbn 9780141036144 --title 1984 --author "George Orwell" --genre Fiction --stock 3`,
		RunE: a.withLibrary(true, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			if strings.TrimSpace(b.ISBN) == "" {
				return errors.New("--isbn is required")
			}
			if b.Stock < 0 {
				return fmt.Errorf("--stock must not be negative, got %d", b.Stock)
			}
			if err := lib.AddBook(b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book %s added successfully!\n", b.ISBN)
			return nil
		}),
	}

	cmd.Flags().StringVar(&b.ISBN, "isbn", "", "ISBN (required)")
	cmd.Flags().StringVar(&b.Title, "title", "", "Title")
	cmd.Flags().StringVar(&b.Author, "author", "", "Author")
	cmd.Flags().StringVar(&b.Genre, "genre", "", "Genre")
	cmd.Flags().IntVar(&b.Stock, "stock", 1, "Number of copies")
	_ = cmd.MarkFlagRequired("isbn")
	return cmd
}

func newBookDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ISBN",
		Short: "Delete every book with the given ISBN",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLibrary(true, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			n := lib.DeleteBook(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d book(s) with ISBN %s.\n", n, args[0])
			return nil
		}),
	}
}

func newBookListCmd(a *app) *cobra.Command {
	var available bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog books",
		RunE: a.withLibrary(false, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			books := lib.Books()
			if available {
				books = lib.AvailableBooks()
			}
			printBooks(cmd.OutOrStdout(), books)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&available, "available", false, "Only list books with copies in stock")
	return cmd
}
