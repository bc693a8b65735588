package store

import (
	"context"
	"fmt"
)

// migrations are applied in order; each entry runs at most once. Never edit a
// released migration, append a new one.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS albums (
        rating_key    TEXT PRIMARY KEY,
        path          TEXT NOT NULL,
        artist        TEXT NOT NULL DEFAULT '',
        title         TEXT NOT NULL DEFAULT '',
        added_at      TEXT NOT NULL,
        fragment_fold TEXT NOT NULL,
        artist_fold   TEXT NOT NULL DEFAULT '',
        title_fold    TEXT NOT NULL DEFAULT ''
    );
    CREATE INDEX IF NOT EXISTS idx_albums_fragment ON albums(fragment_fold);
    CREATE INDEX IF NOT EXISTS idx_albums_metadata ON albums(artist_fold, title_fold);

    CREATE TABLE IF NOT EXISTS watermarks (
        scope TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS groupings (
        kind           TEXT NOT NULL,
        remote_id      TEXT NOT NULL,
        name           TEXT NOT NULL,
        site           TEXT NOT NULL,
        collection_key TEXT NOT NULL DEFAULT '',
        updated_at     TEXT NOT NULL,
        PRIMARY KEY (kind, remote_id)
    );

    CREATE TABLE IF NOT EXISTS grouping_members (
        kind       TEXT NOT NULL,
        remote_id  TEXT NOT NULL,
        rating_key TEXT NOT NULL,
        PRIMARY KEY (kind, remote_id, rating_key)
    );

    CREATE TABLE IF NOT EXISTS tag_mappings (
        rating_key TEXT NOT NULL,
        site       TEXT NOT NULL,
        group_id   TEXT NOT NULL,
        scanned_at TEXT NOT NULL,
        PRIMARY KEY (rating_key, site)
    );

    CREATE TABLE IF NOT EXISTS mapping_tags (
        rating_key TEXT NOT NULL,
        site       TEXT NOT NULL,
        tag        TEXT NOT NULL,
        PRIMARY KEY (rating_key, site, tag)
    );
    CREATE INDEX IF NOT EXISTS idx_mapping_tags_tag ON mapping_tags(tag);`,
}

func (s *Store) applyMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version    INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL
    )`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations(version, applied_at) VALUES (?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))`, i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}
	return nil
}
