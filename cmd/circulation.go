package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newIssueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "issue MEMBER_ID ISBN",
		Short: "Lend a copy of a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: a.withLibrary(true, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			if err := lib.IssueBook(args[0], args[1]); err != nil {
				return errors.New(describeIssueError(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Book issued successfully!")
			return nil
		}),
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return MEMBER_ID ISBN",
		Short: "Take back a member's copy of a book",
		Args:  cobra.ExactArgs(2),
		RunE: a.withLibrary(true, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			overdue, err := lib.ReturnBook(args[0], args[1])
			if err != nil {
				return fmt.Errorf("return failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book returned successfully! Overdue by %d days.\n", overdue)
			return nil
		}),
	}
}

func newTransactionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"log"},
		Short:   "Show the borrow/return log",
		RunE: a.withLibrary(false, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			printTransactions(cmd.OutOrStdout(), lib.Transactions())
			return nil
		}),
	}
}
