package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newMembershipCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "membership",
		Aliases: []string{"ms"},
		Short:   "Manage group memberships",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <group-id> <member-id>",
			Short: "Put a member into a group",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
					m, err := svc.manager.AddMembership(ctx, args[1], args[0])
					if err != nil {
						return err
					}
					return a.printMember(cmd.OutOrStdout(), m)
				})
			},
		},
		&cobra.Command{
			Use:   "list <group-id>",
			Short: "List the members of a group",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
					roster, err := svc.manager.ListMembers(ctx, args[0])
					if err != nil {
						return err
					}
					return a.render(cmd.OutOrStdout(), roster, func(w io.Writer) { printMembers(w, roster) })
				})
			},
		},
		&cobra.Command{
			Use:   "get <group-id> <member-id>",
			Short: "Show a member if it belongs to the group",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
					m, err := svc.manager.GetMembership(ctx, args[1], args[0])
					if err != nil {
						return err
					}
					return a.printMember(cmd.OutOrStdout(), m)
				})
			},
		},
		&cobra.Command{
			Use:   "replace <group-id> [member-id...]",
			Short: "Replace a group's members",
			Long: "Make the listed members the group's complete roster. Listing no\n" +
				"members empties the group. Every id must name an existing member.",
			Args: cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
					g, err := svc.manager.ReplaceMembers(ctx, args[0], args[1:])
					if err != nil {
						return err
					}
					return a.printGroup(cmd.OutOrStdout(), g)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <group-id> <member-id>",
			Short: "Take a member out of a group",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
					if err := svc.manager.RemoveMembership(ctx, args[1], args[0]); err != nil {
						return err
					}
					return a.render(cmd.OutOrStdout(), map[string]string{"group_id": args[0], "removed": args[1]}, func(w io.Writer) {
						fmt.Fprintf(w, "removed %s from %s\n", args[1], args[0])
					})
				})
			},
		},
	)
	return cmd
}
