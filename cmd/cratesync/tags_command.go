package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratesync/internal/albumindex"
	"cratesync/internal/groupsync"
	"cratesync/internal/sitetags"
	"cratesync/internal/store"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "Scan site tags and build tag collections",
	}

	tagsCmd.AddCommand(newTagsScanCommand(ctx))
	tagsCmd.AddCommand(newTagsCollectionCommand(ctx))

	return tagsCmd
}

func newTagsScanCommand(ctx *commandContext) *cobra.Command {
	var (
		site  string
		limit int
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Map local albums to site groups and record their tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			fetcher, err := ctx.siteFetcher(site)
			if err != nil {
				return err
			}
			lib, err := ctx.libraryService()
			if err != nil {
				return err
			}

			var chooser sitetags.GroupChooser = sitetags.AutoSkipGroup{}
			progress := false
			if !yes {
				if prompter := newTerminalPrompter(); prompter != nil {
					chooser = prompter
					progress = true
				}
			}

			return ctx.withStore(func(st *store.Store) error {
				index := albumindex.New(st, lib, logger)
				if _, err := index.Refresh(cmd.Context()); err != nil {
					return err
				}

				scanner := sitetags.NewScanner(st, lib, fetcher, chooser, logger)
				scanner.ShowProgress(progress)
				summary, err := scanner.Scan(cmd.Context(), limit)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scanned %d albums: %d mapped, %d skipped\n",
					summary.Scanned, summary.Mapped, summary.Skipped)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&site, "site", "s", "", "Site to search (defaults to the only configured site)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum albums to scan this run (0 scans all)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip ambiguous search results instead of asking")
	return cmd
}

func newTagsCollectionCommand(ctx *commandContext) *cobra.Command {
	var (
		site  string
		tags  []string
		name  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Build a collection from albums carrying every given tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(tags) == 0 {
				return fmt.Errorf("at least one --tag is required")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			fetcher, err := ctx.siteFetcher(site)
			if err != nil {
				return err
			}
			lib, err := ctx.libraryService()
			if err != nil {
				return err
			}

			var confirmer groupsync.Confirmer
			if force {
				confirmer = groupsync.AlwaysAdopt{}
			} else if prompter := newTerminalPrompter(); prompter != nil {
				confirmer = prompter
			}

			return ctx.withStore(func(st *store.Store) error {
				syncer := groupsync.New(st, lib, confirmer, logger)
				builder := sitetags.NewBuilder(st, syncer, fetcher.Site(), logger)

				outcome, err := builder.Build(cmd.Context(), tags, name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch outcome.Action {
				case groupsync.ActionUnchanged:
					fmt.Fprintf(out, "Collection %q already up to date\n", outcome.Name)
				case groupsync.ActionSkipped:
					fmt.Fprintf(out, "Collection %q left untouched\n", outcome.Name)
				default:
					fmt.Fprintf(out, "Collection %q %s (%d albums added)\n", outcome.Name, outcome.Action, outcome.Added)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&site, "site", "s", "", "Site whose tag mappings to use")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Tag every album must carry (repeatable)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Collection name (derived from the tags when empty)")
	cmd.Flags().BoolVar(&force, "force", false, "Adopt an existing collection without asking")
	return cmd
}
