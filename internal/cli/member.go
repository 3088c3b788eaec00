package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roster/internal/records"
	"github.com/mesh-intelligence/roster/pkg/types"
)

// memberFlags holds the attribute flags shared by create and update.
type memberFlags struct {
	username  string
	email     string
	birthDate string
}

func (f *memberFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.username, "username", "", "username")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.birthDate, "birth-date", "", "birth date (YYYY-MM-DD or RFC 3339)")
}

// apply copies the flags the user set onto m.
func (f *memberFlags) apply(cmd *cobra.Command, m *types.Member) error {
	if cmd.Flags().Changed("username") {
		m.Username = f.username
	}
	if cmd.Flags().Changed("email") {
		m.Email = f.email
	}
	if cmd.Flags().Changed("birth-date") {
		birth, err := records.ParseDate("birth-date", f.birthDate)
		if err != nil {
			return err
		}
		m.BirthDate = birth
	}
	return nil
}

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage members",
	}
	cmd.AddCommand(
		newMemberCreateCmd(a),
		newMemberListCmd(a),
		newMemberGetCmd(a),
		newMemberUpdateCmd(a),
		newMemberDeleteCmd(a),
	)
	return cmd
}

func (a *app) printMember(w io.Writer, m *types.Member) error {
	return a.render(w, m, func(w io.Writer) { printMembers(w, []*types.Member{m}) })
}

func newMemberCreateCmd(a *app) *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := &types.Member{}
			if err := f.apply(cmd, m); err != nil {
				return userError(err)
			}
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				created, err := svc.members.Create(ctx, m)
				if err != nil {
					return err
				}
				return a.printMember(cmd.OutOrStdout(), created)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newMemberListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				members, err := svc.members.List(ctx)
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), members, func(w io.Writer) { printMembers(w, members) })
			})
		},
	}
}

func newMemberGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <member-id>",
		Short: "Show a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				m, err := svc.members.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printMember(cmd.OutOrStdout(), m)
			})
		},
	}
}

func newMemberUpdateCmd(a *app) *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:   "update <member-id>",
		Short: "Change a member's attributes",
		Long:  "Change the attributes named by flags. Unset flags keep their stored value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				m, err := svc.members.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if err := f.apply(cmd, m); err != nil {
					return err
				}
				updated, err := svc.members.Update(ctx, args[0], m)
				if err != nil {
					return err
				}
				return a.printMember(cmd.OutOrStdout(), updated)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newMemberDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <member-id>",
		Short: "Delete a member and its memberships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				if err := svc.members.Delete(ctx, args[0]); err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "deleted member %s\n", args[0])
				})
			})
		},
	}
}
