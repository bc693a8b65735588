package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const albumColumns = "rating_key, path, artist, title, added_at, fragment_fold, artist_fold, title_fold"

// UpsertAlbums inserts or replaces album rows in one transaction.
func (s *Store) UpsertAlbums(ctx context.Context, rows []AlbumRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin album upsert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO albums (`+albumColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare album upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.RatingKey,
			row.Path,
			row.Artist,
			row.Title,
			row.AddedAt.UTC().Format(time.RFC3339Nano),
			row.FragmentFold,
			row.ArtistFold,
			row.TitleFold,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert album %s: %w", row.RatingKey, err)
		}
	}
	return tx.Commit()
}

// AlbumsByFragment returns all albums whose folded path fragment equals the
// queried value.
func (s *Store) AlbumsByFragment(ctx context.Context, fragmentFold string) ([]AlbumRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE fragment_fold = ?`, fragmentFold)
	if err != nil {
		return nil, corrupt("albums by fragment", err)
	}
	defer rows.Close()
	return scanAlbums(rows)
}

// AlbumsByMetadata returns all albums matching folded artist and title.
func (s *Store) AlbumsByMetadata(ctx context.Context, artistFold, titleFold string) ([]AlbumRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE artist_fold = ? AND title_fold = ?`, artistFold, titleFold)
	if err != nil {
		return nil, corrupt("albums by metadata", err)
	}
	defer rows.Close()
	return scanAlbums(rows)
}

// AlbumByKey returns one album row, or nil when absent.
func (s *Store) AlbumByKey(ctx context.Context, ratingKey string) (*AlbumRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE rating_key = ?`, ratingKey)
	album, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, corrupt("album by key", err)
	}
	return &album, nil
}

// AlbumCount returns the number of indexed albums.
func (s *Store) AlbumCount(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM albums`)
	if err := row.Scan(&count); err != nil {
		return 0, corrupt("album count", err)
	}
	return count, nil
}

// ResetAlbums deletes the album snapshot and its watermark.
func (s *Store) ResetAlbums(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM albums`); err != nil {
		return fmt.Errorf("reset albums: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watermarks WHERE scope = ?`, watermarkScopeAlbums); err != nil {
		return fmt.Errorf("reset album watermark: %w", err)
	}
	return nil
}

const watermarkScopeAlbums = "albums"

// AlbumWatermark returns the timestamp of the last successful index refresh,
// or the zero time when the index has never been refreshed.
func (s *Store) AlbumWatermark(ctx context.Context) (time.Time, error) {
	var raw string
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM watermarks WHERE scope = ?`, watermarkScopeAlbums)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, corrupt("album watermark", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, corrupt("album watermark", err)
	}
	return parsed, nil
}

// SetAlbumWatermark records the refresh watermark. Callers advance it only
// after a refresh completes successfully.
func (s *Store) SetAlbumWatermark(ctx context.Context, value time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO watermarks(scope, value) VALUES (?, ?)`,
		watermarkScopeAlbums, value.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set album watermark: %w", err)
	}
	return nil
}

func scanAlbums(rows *sql.Rows) ([]AlbumRow, error) {
	var albums []AlbumRow
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, corrupt("scan album", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, corrupt("iterate albums", err)
	}
	return albums, nil
}

func scanAlbum(scanner interface{ Scan(dest ...any) error }) (AlbumRow, error) {
	var (
		album    AlbumRow
		addedRaw string
	)
	if err := scanner.Scan(
		&album.RatingKey,
		&album.Path,
		&album.Artist,
		&album.Title,
		&addedRaw,
		&album.FragmentFold,
		&album.ArtistFold,
		&album.TitleFold,
	); err != nil {
		return AlbumRow{}, err
	}
	added, err := time.Parse(time.RFC3339Nano, addedRaw)
	if err != nil {
		return AlbumRow{}, fmt.Errorf("parse added_at %q: %w", addedRaw, err)
	}
	album.AddedAt = added
	return album, nil
}
