package matching

import (
	"context"
	"fmt"
	"log/slog"

	"cratesync/internal/albumindex"
	"cratesync/internal/gazelle"
	"cratesync/internal/logging"
	"cratesync/internal/store"
)

// Strategy selects how remote records are compared against the local index.
type Strategy string

const (
	// StrategyPath matches on the release folder name.
	StrategyPath Strategy = "path"
	// StrategyQuery parses "Artist - Title" from the folder name and matches
	// on album metadata.
	StrategyQuery Strategy = "query"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyPath, StrategyQuery:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown match strategy %q (want path or query)", s)
	}
}

// Status describes the outcome of matching one record.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusAmbiguous Status = "ambiguous"
	StatusUnmatched Status = "unmatched"
)

// Result pairs a remote record with the local albums it resolved to. Exactly
// one candidate means a confident match; several mean the record is ambiguous
// and needs an explicit decision before it contributes to a sync.
type Result struct {
	Record     gazelle.TorrentRecord
	Candidates []store.AlbumRow
	Status     Status
}

// Matcher resolves remote torrent records to local albums through the index.
type Matcher struct {
	index    *albumindex.Index
	strategy Strategy
	logger   *slog.Logger
}

func New(index *albumindex.Index, strategy Strategy, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		index:    index,
		strategy: strategy,
		logger:   logging.WithComponent(logger, "matching"),
	}
}

// MatchGroups matches every record of every group, preserving input order.
func (m *Matcher) MatchGroups(ctx context.Context, groups []gazelle.RemoteGroup) ([]Result, error) {
	var results []Result
	for _, group := range groups {
		for _, record := range group.Records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result, err := m.matchRecord(ctx, record)
			if err != nil {
				return nil, err
			}
			results = append(results, result)
		}
	}
	return results, nil
}

func (m *Matcher) matchRecord(ctx context.Context, record gazelle.TorrentRecord) (Result, error) {
	var (
		candidates []store.AlbumRow
		err        error
	)
	switch m.strategy {
	case StrategyQuery:
		artist, title, ok := albumindex.SplitArtistTitle(record.PathFragment)
		if !ok {
			m.logger.Debug("fragment not parseable as artist - title", "fragment", record.PathFragment)
			return Result{Record: record, Status: StatusUnmatched}, nil
		}
		candidates, err = m.index.LookupByMetadata(ctx, artist, title)
	default:
		candidates, err = m.index.LookupByFragment(ctx, record.PathFragment)
	}
	if err != nil {
		return Result{}, err
	}

	result := Result{Record: record, Candidates: candidates}
	switch len(candidates) {
	case 0:
		result.Status = StatusUnmatched
	case 1:
		result.Status = StatusMatched
	default:
		result.Status = StatusAmbiguous
		m.logger.Debug("ambiguous match",
			"fragment", record.PathFragment,
			"candidates", len(candidates))
	}
	return result, nil
}

// ResolveKeys turns match results into rating keys. Confident matches pass
// through; ambiguous results go to the resolver, which may pick one candidate
// or decline. Unmatched records are skipped. Keys come back deduplicated in
// first-seen order.
func ResolveKeys(results []Result, resolver Resolver) ([]string, error) {
	if resolver == nil {
		resolver = AutoSkip{}
	}
	var keys []string
	seen := make(map[string]struct{})
	add := func(key string) {
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	for _, result := range results {
		switch result.Status {
		case StatusMatched:
			add(result.Candidates[0].RatingKey)
		case StatusAmbiguous:
			choice, err := resolver.ResolveAmbiguity(result.Record, result.Candidates)
			if err != nil {
				return nil, err
			}
			if choice != nil {
				add(choice.RatingKey)
			}
		}
	}
	return keys, nil
}
