package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Register, remove and list members",
	}
	cmd.AddCommand(newMemberAddCmd(a))
	cmd.AddCommand(newMemberRemoveCmd(a))
	cmd.AddCommand(newMemberListCmd(a))
	return cmd
}

func newMemberAddCmd(a *app) *cobra.Command {
	var m library.Member

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Example: `  # Register with an explicit ID
  library member add --id M1 --name Alice --contact alice@example.com --type standard

  # Let the catalog generate an ID
  library member add --name Bob`,
		RunE: a.withLibrary(true, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			if err := lib.RegisterMember(m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Member %s registered successfully!\n", m.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&m.ID, "id", "", "Member ID (generated when empty)")
	cmd.Flags().StringVar(&m.Name, "name", "", "Name")
	cmd.Flags().StringVar(&m.Contact, "contact", "", "Contact details")
	cmd.Flags().StringVar(&m.MembershipType, "type", "", "Membership type")
	return cmd
}

func newMemberRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove MEMBER_ID",
		Short: "Remove every member with the given ID",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLibrary(true, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			n := lib.RemoveMember(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d member(s) with ID %s.\n", n, args[0])
			return nil
		}),
	}
}

func newMemberListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered members and their loans",
		RunE: a.withLibrary(false, func(cmd *cobra.Command, args []string, lib *library.Library) error {
			printMembers(cmd.OutOrStdout(), lib.Members())
			return nil
		}),
	}
}
