package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cratesync/internal/albumindex"
	"cratesync/internal/gazelle"
	"cratesync/internal/groupsync"
	"cratesync/internal/logging"
	"cratesync/internal/matching"
	"cratesync/internal/store"
)

// Target names one remote grouping to reconcile. Bookmarks have no remote ID;
// they are keyed by the site itself.
type Target struct {
	Kind     store.Kind
	RemoteID string
}

// Report is the per-target result of a run.
type Report struct {
	Target    Target
	Name      string
	Matched   int
	Ambiguous int
	Unmatched int
	Outcome   groupsync.Outcome
	Err       error
}

// Processor runs the fetch, match, and sync pipeline for a set of targets on
// one site.
type Processor struct {
	index    *albumindex.Index
	fetcher  *gazelle.Fetcher
	matcher  *matching.Matcher
	resolver matching.Resolver
	syncer   *groupsync.Syncer
	logger   *slog.Logger
}

func NewProcessor(index *albumindex.Index, fetcher *gazelle.Fetcher, matcher *matching.Matcher, resolver matching.Resolver, syncer *groupsync.Syncer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		index:    index,
		fetcher:  fetcher,
		matcher:  matcher,
		resolver: resolver,
		syncer:   syncer,
		logger:   logging.WithComponent(logger, "reconcile"),
	}
}

// Run refreshes the album index once, then reconciles each target in order.
// A failing target is reported and does not stop the others; the run aborts
// only on cancellation or local store corruption.
func (p *Processor) Run(ctx context.Context, targets []Target) ([]Report, error) {
	runID := uuid.NewString()[:8]
	logger := p.logger.With("run", runID, "site", p.fetcher.Site())
	logger.Info("run started", "targets", len(targets))

	if _, err := p.index.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refresh album index: %w", err)
	}

	reports := make([]Report, 0, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report := p.processTarget(ctx, target)
		reports = append(reports, report)
		if report.Err == nil {
			continue
		}
		if errors.Is(report.Err, context.Canceled) || errors.Is(report.Err, context.DeadlineExceeded) {
			return reports, report.Err
		}
		if store.IsCorruption(report.Err) {
			logger.Error("local store corrupt, aborting run", "error", report.Err)
			return reports, report.Err
		}
		logger.Warn("target failed, continuing",
			"kind", string(target.Kind),
			"id", target.RemoteID,
			"error", report.Err)
	}

	logger.Info("run finished", "targets", len(reports))
	return reports, nil
}

func (p *Processor) processTarget(ctx context.Context, target Target) Report {
	report := Report{Target: target}

	var (
		groups   []gazelle.RemoteGroup
		name     string
		remoteID string
		err      error
	)
	switch target.Kind {
	case store.KindBookmark:
		groups, err = p.fetcher.Bookmarks(ctx)
		name = strings.ToUpper(p.fetcher.Site()) + " Bookmarks"
		remoteID = p.fetcher.Site()
	default:
		name, groups, err = p.fetcher.Collage(ctx, target.RemoteID)
		if name == "" {
			name = "Collage " + target.RemoteID
		}
		remoteID = target.RemoteID
	}
	if err != nil {
		report.Err = err
		return report
	}
	report.Name = name

	results, err := p.matcher.MatchGroups(ctx, groups)
	if err != nil {
		report.Err = err
		return report
	}
	for _, result := range results {
		switch result.Status {
		case matching.StatusMatched:
			report.Matched++
		case matching.StatusAmbiguous:
			report.Ambiguous++
		default:
			report.Unmatched++
		}
	}

	keys, err := matching.ResolveKeys(results, p.resolver)
	if err != nil {
		report.Err = err
		return report
	}

	outcome, err := p.syncer.Sync(ctx, target.Kind, remoteID, p.fetcher.Site(), name, keys)
	if err != nil {
		report.Err = err
		return report
	}
	report.Outcome = outcome
	return report
}
