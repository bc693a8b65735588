package main

import (
	"github.com/spf13/cobra"

	"cratesync/internal/reconcile"
	"cratesync/internal/store"
)

func newBookmarksCommand(ctx *commandContext) *cobra.Command {
	bookmarksCmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "Sync site bookmarks into a collection",
	}

	bookmarksCmd.AddCommand(newBookmarksSyncCommand(ctx, "convert", "Create or update the bookmarks collection"))
	bookmarksCmd.AddCommand(newBookmarksSyncCommand(ctx, "update", "Re-sync the bookmarks collection"))

	return bookmarksCmd
}

// Convert and update are the same fetch for bookmarks; both names exist so
// the verbs mirror the collage commands.
func newBookmarksSyncCommand(ctx *commandContext, use, short string) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runTargets(cmd, opts, func(*store.Store, string) ([]reconcile.Target, error) {
				return []reconcile.Target{{Kind: store.KindBookmark}}, nil
			})
		},
	}

	addRunFlags(cmd, &opts)
	return cmd
}
