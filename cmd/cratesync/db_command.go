package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cratesync/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the local database",
	}

	dbCmd.AddCommand(newDBStatsCommand(ctx))
	dbCmd.AddCommand(newDBListCommand(ctx))
	dbCmd.AddCommand(newDBResetCommand(ctx))

	return dbCmd
}

func newDBStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database contents at a glance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				albums, err := st.AlbumCount(cmd.Context())
				if err != nil {
					return err
				}
				watermark, err := st.AlbumWatermark(cmd.Context())
				if err != nil {
					return err
				}
				tagStats, err := st.TagMappingStats(cmd.Context())
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Database", st.Path()},
					{"Indexed albums", strconv.Itoa(albums)},
					{"Index watermark", formatTime(watermark)},
					{"Tag mappings", strconv.Itoa(tagStats.TotalMappings)},
					{"Mapped albums", strconv.Itoa(tagStats.MappedAlbums)},
					{"Distinct tags", strconv.Itoa(tagStats.DistinctTags)},
				}
				for _, kind := range []store.Kind{store.KindCollage, store.KindBookmark, store.KindTagSet} {
					groupings, err := st.ListGroupings(cmd.Context(), kind)
					if err != nil {
						return err
					}
					rows = append(rows, []string{"Groupings (" + string(kind) + ")", strconv.Itoa(len(groupings))})
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Stat", "Value"}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newDBListCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved groupings and their collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := []store.Kind{store.KindCollage, store.KindBookmark, store.KindTagSet}
			if kindFlag != "" {
				kind, err := parseKind(kindFlag)
				if err != nil {
					return err
				}
				kinds = []store.Kind{kind}
			}

			return ctx.withStore(func(st *store.Store) error {
				rows := make([][]string, 0)
				for _, kind := range kinds {
					groupings, err := st.ListGroupings(cmd.Context(), kind)
					if err != nil {
						return err
					}
					for _, grouping := range groupings {
						rows = append(rows, []string{
							string(grouping.Kind),
							grouping.RemoteID,
							grouping.Name,
							grouping.Site,
							strconv.Itoa(len(grouping.MemberKeys)),
							formatTime(grouping.UpdatedAt),
						})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No groupings saved")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Kind", "Remote ID", "Name", "Site", "Albums", "Updated"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Limit to one kind: collage, bookmark, or tag_set")
	return cmd
}

func newDBResetCommand(ctx *commandContext) *cobra.Command {
	var (
		albums    bool
		groupings bool
		tags      bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !albums && !groupings && !tags {
				return fmt.Errorf("pick at least one of --albums, --groupings, --tags")
			}
			if !yes {
				return fmt.Errorf("pass --yes to confirm the reset")
			}
			return ctx.withStore(func(st *store.Store) error {
				out := cmd.OutOrStdout()
				if albums {
					if err := st.ResetAlbums(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(out, "Album index cleared")
				}
				if groupings {
					for _, kind := range []store.Kind{store.KindCollage, store.KindBookmark, store.KindTagSet} {
						if err := st.ResetGroupings(cmd.Context(), kind); err != nil {
							return err
						}
					}
					fmt.Fprintln(out, "Groupings cleared")
				}
				if tags {
					if err := st.ResetTagMappings(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(out, "Tag mappings cleared")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&albums, "albums", false, "Clear the album index and watermark")
	cmd.Flags().BoolVar(&groupings, "groupings", false, "Forget synced collages, bookmarks, and tag sets")
	cmd.Flags().BoolVar(&tags, "tags", false, "Clear scanned tag mappings")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	return cmd
}

func parseKind(value string) (store.Kind, error) {
	switch store.Kind(strings.ToLower(strings.TrimSpace(value))) {
	case store.KindCollage:
		return store.KindCollage, nil
	case store.KindBookmark:
		return store.KindBookmark, nil
	case store.KindTagSet:
		return store.KindTagSet, nil
	default:
		return "", fmt.Errorf("unknown kind %q (want collage, bookmark, or tag_set)", value)
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "never"
	}
	return value.Local().Format("2006-01-02 15:04")
}
