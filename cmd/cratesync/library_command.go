package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratesync/internal/albumindex"
	"cratesync/internal/store"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the local album index",
	}

	libraryCmd.AddCommand(newLibraryRefreshCommand(ctx))
	libraryCmd.AddCommand(newLibraryResetCommand(ctx))

	return libraryCmd
}

func newLibraryRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Pull albums added to the media server since the last refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			lib, err := ctx.libraryService()
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				index := albumindex.New(st, lib, logger)
				fetched, err := index.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				total, err := index.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d albums, %d indexed in total\n", fetched, total)
				return nil
			})
		},
	}
}

func newLibraryResetCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the album index so the next refresh rebuilds it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("pass --yes to confirm discarding the album index")
			}
			return ctx.withStore(func(st *store.Store) error {
				if err := st.ResetAlbums(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Album index cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	return cmd
}
