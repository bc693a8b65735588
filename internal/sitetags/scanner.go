package sitetags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/schollz/progressbar/v3"

	"cratesync/internal/gazelle"
	"cratesync/internal/library"
	"cratesync/internal/logging"
	"cratesync/internal/store"
)

// GroupChooser decides which remote group an album belongs to when a filename
// search returns several. Implementations may block to ask a person.
// Returning nil without an error skips the album for this scan.
type GroupChooser interface {
	ChooseGroup(album store.AlbumRow, groups []gazelle.RemoteGroup) (*gazelle.RemoteGroup, error)
}

// AutoSkipGroup declines every ambiguous search result.
type AutoSkipGroup struct{}

func (AutoSkipGroup) ChooseGroup(store.AlbumRow, []gazelle.RemoteGroup) (*gazelle.RemoteGroup, error) {
	return nil, nil
}

// Leading track numbers like "01 - ", "2. ", or "03 " that rippers prepend to
// file names. Stripping them widens the search when the exact name finds
// nothing. The digits must be followed by a separator or whitespace so names
// that merely start with digits ("2Pac - ...") pass through untouched.
var trackPrefix = regexp.MustCompile(`^\d+(\s*[-.]\s*|\s+)`)

// ScanSummary counts per-album outcomes of a scan pass.
type ScanSummary struct {
	Scanned int
	Mapped  int
	Skipped int
}

// Scanner maps local albums to remote groups by searching for their file
// names, then records the group's tags.
type Scanner struct {
	store    *store.Store
	library  library.Service
	fetcher  *gazelle.Fetcher
	chooser  GroupChooser
	logger   *slog.Logger
	progress bool
}

func NewScanner(st *store.Store, lib library.Service, fetcher *gazelle.Fetcher, chooser GroupChooser, logger *slog.Logger) *Scanner {
	if chooser == nil {
		chooser = AutoSkipGroup{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		store:   st,
		library: lib,
		fetcher: fetcher,
		chooser: chooser,
		logger:  logging.WithComponent(logger, "sitetags"),
	}
}

// ShowProgress enables a terminal progress bar during Scan.
func (s *Scanner) ShowProgress(enabled bool) {
	s.progress = enabled
}

// Scan processes albums that have no tag mapping for this site yet, newest
// first. limit <= 0 scans everything. Albums whose search finds nothing are
// recorded with an empty mapping so the next scan does not repeat them.
// A site outage aborts the scan; the partial summary is still returned.
func (s *Scanner) Scan(ctx context.Context, limit int) (ScanSummary, error) {
	var summary ScanSummary

	keys, err := s.store.UnscannedAlbums(ctx, s.fetcher.Site())
	if err != nil {
		return summary, err
	}
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	if len(keys) == 0 {
		s.logger.Info("no unscanned albums", "site", s.fetcher.Site())
		return summary, nil
	}

	var bar *progressbar.ProgressBar
	if s.progress {
		bar = progressbar.NewOptions(len(keys),
			progressbar.OptionSetDescription("scanning albums"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		album, err := s.store.AlbumByKey(ctx, key)
		if err != nil {
			return summary, err
		}
		if album == nil {
			continue
		}

		group, err := s.findGroup(ctx, *album)
		if err != nil {
			if errors.Is(err, gazelle.ErrRemoteUnavailable) {
				return summary, fmt.Errorf("scan aborted at %q: %w", album.Title, err)
			}
			return summary, err
		}

		mapping := store.TagMapping{RatingKey: album.RatingKey, Site: s.fetcher.Site()}
		if group != nil {
			mapping.GroupID = group.ID
			mapping.Tags = group.Tags
			summary.Mapped++
		} else {
			summary.Skipped++
		}
		if err := s.store.UpsertTagMapping(ctx, mapping); err != nil {
			return summary, err
		}
		summary.Scanned++
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	s.logger.Info("scan finished",
		"site", s.fetcher.Site(),
		"scanned", summary.Scanned,
		"mapped", summary.Mapped,
		"skipped", summary.Skipped)
	return summary, nil
}

// findGroup searches the site for the album's first file name. When the exact
// name finds nothing, it retries with the leading track number stripped.
func (s *Scanner) findGroup(ctx context.Context, album store.AlbumRow) (*gazelle.RemoteGroup, error) {
	files, err := s.library.AlbumFiles(ctx, album.RatingKey)
	if err != nil {
		return nil, fmt.Errorf("album files for %q: %w", album.Title, err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	filename := files[0]
	groups, err := s.search(ctx, filename)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		if stripped := trackPrefix.ReplaceAllString(filename, ""); stripped != "" && stripped != filename {
			groups, err = s.search(ctx, stripped)
			if err != nil {
				return nil, err
			}
		}
	}

	switch len(groups) {
	case 0:
		s.logger.Debug("no site match", "album", album.Title, "file", filename)
		return nil, nil
	case 1:
		return &groups[0], nil
	default:
		return s.chooser.ChooseGroup(album, groups)
	}
}

func (s *Scanner) search(ctx context.Context, filename string) ([]gazelle.RemoteGroup, error) {
	groups, err := s.fetcher.SearchFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, gazelle.ErrRemoteNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return groups, nil
}
