package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roster/pkg/types"
)

type groupFlags struct {
	name        string
	foundedOn   string
	imageURL    string
	description string
}

func (f *groupFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "group name")
	cmd.Flags().StringVar(&f.foundedOn, "founded-on", "", "founding date or year")
	cmd.Flags().StringVar(&f.imageURL, "image-url", "", "image URL")
	cmd.Flags().StringVar(&f.description, "description", "", "free-form description")
}

func (f *groupFlags) apply(cmd *cobra.Command, g *types.Group) {
	set := cmd.Flags().Changed
	if set("name") {
		g.Name = f.name
	}
	if set("founded-on") {
		g.FoundedOn = f.foundedOn
	}
	if set("image-url") {
		g.ImageURL = f.imageURL
	}
	if set("description") {
		g.Description = f.description
	}
}

func newGroupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}
	cmd.AddCommand(
		newGroupCreateCmd(a),
		newGroupListCmd(a),
		newGroupGetCmd(a),
		newGroupUpdateCmd(a),
		newGroupDeleteCmd(a),
	)
	return cmd
}

func (a *app) printGroup(w io.Writer, g *types.Group) error {
	return a.render(w, g, func(w io.Writer) { printGroups(w, []*types.Group{g}) })
}

func newGroupCreateCmd(a *app) *cobra.Command {
	var f groupFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := &types.Group{}
			f.apply(cmd, g)
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				created, err := svc.groups.Create(ctx, g)
				if err != nil {
					return err
				}
				return a.printGroup(cmd.OutOrStdout(), created)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newGroupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				groups, err := svc.groups.List(ctx)
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), groups, func(w io.Writer) { printGroups(w, groups) })
			})
		},
	}
}

func newGroupGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <group-id>",
		Short: "Show a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				g, err := svc.groups.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printGroup(cmd.OutOrStdout(), g)
			})
		},
	}
}

func newGroupUpdateCmd(a *app) *cobra.Command {
	var f groupFlags
	cmd := &cobra.Command{
		Use:   "update <group-id>",
		Short: "Change a group's attributes",
		Long:  "Change the attributes named by flags. Unset flags keep their stored value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				g, err := svc.groups.Get(ctx, args[0])
				if err != nil {
					return err
				}
				f.apply(cmd, g)
				updated, err := svc.groups.Update(ctx, args[0], g)
				if err != nil {
					return err
				}
				return a.printGroup(cmd.OutOrStdout(), updated)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newGroupDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete a group and its memberships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				if err := svc.groups.Delete(ctx, args[0]); err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "deleted group %s\n", args[0])
				})
			})
		},
	}
}
