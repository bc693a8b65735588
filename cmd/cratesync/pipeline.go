package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cratesync/internal/albumindex"
	"cratesync/internal/groupsync"
	"cratesync/internal/matching"
	"cratesync/internal/reconcile"
	"cratesync/internal/store"
)

type runOptions struct {
	site  string
	mode  string
	force bool
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVarP(&opts.site, "site", "s", "", "Site to fetch from (defaults to the only configured site)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "path", "Match mode: path or query")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Adopt existing collections and skip ambiguous matches without asking")
}

// runTargets wires the full pipeline and reconciles the targets produced by
// the selector. The selector runs with the store open so update commands can
// read saved groupings.
func (c *commandContext) runTargets(cmd *cobra.Command, opts runOptions, selectTargets func(st *store.Store, site string) ([]reconcile.Target, error)) error {
	strategy, err := matching.ParseStrategy(opts.mode)
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	fetcher, err := c.siteFetcher(opts.site)
	if err != nil {
		return err
	}
	lib, err := c.libraryService()
	if err != nil {
		return err
	}

	var (
		resolver  matching.Resolver = matching.AutoSkip{}
		confirmer groupsync.Confirmer
	)
	if opts.force {
		confirmer = groupsync.AlwaysAdopt{}
	} else if prompter := newTerminalPrompter(); prompter != nil {
		resolver = prompter
		confirmer = prompter
	}

	return c.withStore(func(st *store.Store) error {
		targets, err := selectTargets(st, fetcher.Site())
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to sync")
			return nil
		}

		index := albumindex.New(st, lib, logger)
		matcher := matching.New(index, strategy, logger)
		syncer := groupsync.New(st, lib, confirmer, logger)
		processor := reconcile.NewProcessor(index, fetcher, matcher, resolver, syncer, logger)

		reports, err := processor.Run(cmd.Context(), targets)
		if err != nil {
			return err
		}
		printReports(cmd, reports)

		failed := 0
		for _, report := range reports {
			if report.Err != nil {
				failed++
			}
		}
		if failed == len(reports) {
			return fmt.Errorf("all %d targets failed", failed)
		}
		return nil
	})
}

func printReports(cmd *cobra.Command, reports []reconcile.Report) {
	headers := []string{"Target", "Collection", "Matched", "Ambiguous", "Unmatched", "Result"}
	rows := make([][]string, 0, len(reports))
	for _, report := range reports {
		target := string(report.Target.Kind)
		if report.Target.RemoteID != "" {
			target += " " + report.Target.RemoteID
		}
		result := string(report.Outcome.Action)
		if report.Outcome.Added > 0 {
			result += " (+" + strconv.Itoa(report.Outcome.Added) + ")"
		}
		if report.Err != nil {
			result = "error: " + report.Err.Error()
		}
		rows = append(rows, []string{
			target,
			report.Name,
			strconv.Itoa(report.Matched),
			strconv.Itoa(report.Ambiguous),
			strconv.Itoa(report.Unmatched),
			result,
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
}
