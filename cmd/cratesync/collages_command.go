package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratesync/internal/reconcile"
	"cratesync/internal/store"
)

func newCollagesCommand(ctx *commandContext) *cobra.Command {
	collagesCmd := &cobra.Command{
		Use:   "collages",
		Short: "Sync site collages into collections",
	}

	collagesCmd.AddCommand(newCollagesConvertCommand(ctx))
	collagesCmd.AddCommand(newCollagesUpdateCommand(ctx))

	return collagesCmd
}

func newCollagesConvertCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "convert <collage-id>...",
		Short: "Create or update collections from collages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runTargets(cmd, opts, func(*store.Store, string) ([]reconcile.Target, error) {
				targets := make([]reconcile.Target, 0, len(args))
				for _, id := range args {
					targets = append(targets, reconcile.Target{Kind: store.KindCollage, RemoteID: id})
				}
				return targets, nil
			})
		},
	}

	addRunFlags(cmd, &opts)
	return cmd
}

func newCollagesUpdateCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Re-sync every previously converted collage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runTargets(cmd, opts, func(st *store.Store, site string) ([]reconcile.Target, error) {
				groupings, err := st.ListGroupings(cmd.Context(), store.KindCollage)
				if err != nil {
					return nil, err
				}
				var targets []reconcile.Target
				for _, grouping := range groupings {
					if grouping.Site != site {
						continue
					}
					targets = append(targets, reconcile.Target{Kind: store.KindCollage, RemoteID: grouping.RemoteID})
				}
				if len(targets) == 0 {
					return nil, fmt.Errorf("no converted collages for site %q", site)
				}
				return targets, nil
			})
		},
	}

	addRunFlags(cmd, &opts)
	return cmd
}
