package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add books from a .parquet, .jsonl or .json file",
		Long: `Import appends every book record in FILE to the catalog.

Records without an ISBN or with negative stock are skipped, as are duplicates
when the uniqueness policy is "reject". The catalog is saved when at least
one book was added.`,
		Example: `  library import books.parquet
  library import books.jsonl --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("books file not accessible: %w", err)
			}
			books, err := library.ReadBooks(path)
			if err != nil {
				return err
			}
			slog.Info("Read books file", "path", path, "records", len(books))

			return a.withLibrary(!dryRun, func(cmd *cobra.Command, args []string, lib *library.Library) error {
				added, err := lib.ImportBooks(books)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Import complete!\n")
				fmt.Fprintf(out, "Successfully imported: %d books\n", added)
				if err != nil {
					errs := strings.Split(err.Error(), "\n")
					fmt.Fprintf(out, "Errors: %d\n", len(errs))
					for _, e := range errs {
						fmt.Fprintf(out, "  %s\n", e)
					}
				}
				if added == 0 && len(books) > 0 {
					return errors.New("no books imported")
				}
				return nil
			})(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be imported without saving")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var available bool

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the catalog to a .parquet, .jsonl or .json file",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLibrary(false, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			books := lib.Books()
			if available {
				books = lib.AvailableBooks()
			}
			if err := library.WriteBooks(args[0], books); err != nil {
				return fmt.Errorf("export books: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d books to %s\n", len(books), args[0])
			return nil
		}),
	}
	cmd.Flags().BoolVar(&available, "available", false, "Only export books with copies in stock")
	return cmd
}
