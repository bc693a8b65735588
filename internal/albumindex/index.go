package albumindex

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"cratesync/internal/library"
	"cratesync/internal/logging"
	"cratesync/internal/store"
)

// Index maintains the local album snapshot used for matching. It refreshes
// incrementally from the media server using an added-at watermark and serves
// equality lookups against precomputed folded columns.
type Index struct {
	store   *store.Store
	library library.Service
	logger  *slog.Logger
}

func New(st *store.Store, lib library.Service, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		store:   st,
		library: lib,
		logger:  logging.WithComponent(logger, "albumindex"),
	}
}

// Refresh pulls albums added since the stored watermark and merges them into
// the snapshot. The watermark only advances after the merge commits, so a
// failed refresh is retried from the same point. Returns the number of albums
// fetched from the server.
func (ix *Index) Refresh(ctx context.Context) (int, error) {
	since, err := ix.store.AlbumWatermark(ctx)
	if err != nil {
		return 0, err
	}

	albums, err := ix.library.AlbumsAddedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("fetch albums: %w", err)
	}
	if len(albums) == 0 {
		ix.logger.Info("album index up to date", "watermark", formatWatermark(since))
		return 0, nil
	}

	rows := make([]store.AlbumRow, 0, len(albums))
	latest := since
	for _, album := range albums {
		rows = append(rows, toRow(album))
		if album.AddedAt.After(latest) {
			latest = album.AddedAt
		}
	}
	if err := ix.store.UpsertAlbums(ctx, rows); err != nil {
		return 0, fmt.Errorf("merge albums: %w", err)
	}
	if err := ix.store.SetAlbumWatermark(ctx, latest); err != nil {
		return 0, fmt.Errorf("advance watermark: %w", err)
	}

	ix.logger.Info("album index refreshed",
		"fetched", len(albums),
		"watermark", formatWatermark(latest))
	return len(albums), nil
}

// Reset discards the snapshot and watermark so the next Refresh rebuilds from
// scratch.
func (ix *Index) Reset(ctx context.Context) error {
	return ix.store.ResetAlbums(ctx)
}

// Count returns the number of albums in the snapshot.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.AlbumCount(ctx)
}

// LookupByFragment returns every indexed album whose folder name matches the
// fragment after normalization.
func (ix *Index) LookupByFragment(ctx context.Context, fragment string) ([]store.AlbumRow, error) {
	return ix.store.AlbumsByFragment(ctx, NormalizeFragment(fragment))
}

// LookupByMetadata returns every indexed album matching the folded artist and
// title pair.
func (ix *Index) LookupByMetadata(ctx context.Context, artist, title string) ([]store.AlbumRow, error) {
	return ix.store.AlbumsByMetadata(ctx, Fold(artist), Fold(title))
}

func toRow(album library.Album) store.AlbumRow {
	return store.AlbumRow{
		RatingKey:    album.RatingKey,
		Path:         album.Path,
		Artist:       album.Artist,
		Title:        album.Title,
		AddedAt:      album.AddedAt,
		FragmentFold: NormalizeFragment(filepath.Base(album.Path)),
		ArtistFold:   Fold(album.Artist),
		TitleFold:    Fold(album.Title),
	}
}

func formatWatermark(mark time.Time) string {
	if mark.IsZero() {
		return "none"
	}
	return mark.UTC().Format(time.RFC3339)
}
