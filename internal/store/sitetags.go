package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// UpsertTagMapping records the remote group and tags found for an album on a
// site. A rescan replaces the previous mapping and its tags rather than
// appending, so stale tags never accumulate.
func (s *Store) UpsertTagMapping(ctx context.Context, mapping TagMapping) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tag mapping upsert: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO tag_mappings(rating_key, site, group_id, scanned_at)
         VALUES (?, ?, ?, ?)`,
		mapping.RatingKey,
		mapping.Site,
		mapping.GroupID,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert tag mapping: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM mapping_tags WHERE rating_key = ? AND site = ?`,
		mapping.RatingKey, mapping.Site); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear mapping tags: %w", err)
	}

	for _, tag := range mapping.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO mapping_tags(rating_key, site, tag) VALUES (?, ?, ?)`,
			mapping.RatingKey, mapping.Site, tag); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert mapping tag: %w", err)
		}
	}

	return tx.Commit()
}

// RatingKeysByTags returns rating keys whose mappings on a site carry every
// requested tag.
func (s *Store) RatingKeysByTags(ctx context.Context, site string, tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	folded := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			folded = append(folded, tag)
		}
	}
	if len(folded) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(folded)+2)
	args = append(args, site)
	for _, tag := range folded {
		args = append(args, tag)
	}
	args = append(args, len(folded))

	query := `SELECT rating_key FROM mapping_tags
        WHERE site = ? AND tag IN (` + makePlaceholders(len(folded)) + `)
        GROUP BY rating_key
        HAVING COUNT(DISTINCT tag) = ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, corrupt("rating keys by tags", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, corrupt("scan rating key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, corrupt("iterate rating keys", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// UnscannedAlbums returns rating keys of indexed albums that have no tag
// mapping for the site yet, newest additions first.
func (s *Store) UnscannedAlbums(ctx context.Context, site string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.rating_key
         FROM albums a
         LEFT JOIN tag_mappings tm ON a.rating_key = tm.rating_key AND tm.site = ?
         WHERE tm.rating_key IS NULL
         ORDER BY a.added_at DESC`, site)
	if err != nil {
		return nil, corrupt("unscanned albums", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, corrupt("scan unscanned album", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, corrupt("iterate unscanned albums", err)
	}
	return keys, nil
}

// RecentTagMappings returns the newest tag mappings with their tags.
func (s *Store) RecentTagMappings(ctx context.Context, limit int) ([]TagMapping, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT rating_key, site, group_id, scanned_at FROM tag_mappings
         ORDER BY scanned_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, corrupt("recent tag mappings", err)
	}
	defer rows.Close()

	var mappings []TagMapping
	for rows.Next() {
		var (
			mapping    TagMapping
			scannedRaw string
		)
		if err := rows.Scan(&mapping.RatingKey, &mapping.Site, &mapping.GroupID, &scannedRaw); err != nil {
			return nil, corrupt("scan tag mapping", err)
		}
		if scanned, err := time.Parse(time.RFC3339Nano, scannedRaw); err == nil {
			mapping.ScannedAt = scanned
		}
		mappings = append(mappings, mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, corrupt("iterate tag mappings", err)
	}

	for i := range mappings {
		tags, err := s.mappingTags(ctx, mappings[i].RatingKey, mappings[i].Site)
		if err != nil {
			return nil, err
		}
		mappings[i].Tags = tags
	}
	return mappings, nil
}

// TagMappingStats summarizes the tag mapping tables.
func (s *Store) TagMappingStats(ctx context.Context) (TagStats, error) {
	var stats TagStats
	row := s.db.QueryRowContext(ctx,
		`SELECT
            (SELECT COUNT(DISTINCT rating_key) FROM tag_mappings),
            (SELECT COUNT(DISTINCT tag) FROM mapping_tags),
            (SELECT COUNT(1) FROM tag_mappings)`)
	if err := row.Scan(&stats.MappedAlbums, &stats.DistinctTags, &stats.TotalMappings); err != nil {
		return TagStats{}, corrupt("tag mapping stats", err)
	}
	return stats, nil
}

// ResetTagMappings deletes every tag mapping.
func (s *Store) ResetTagMappings(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mapping_tags`); err != nil {
		return fmt.Errorf("reset mapping tags: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tag_mappings`); err != nil {
		return fmt.Errorf("reset tag mappings: %w", err)
	}
	return nil
}

func (s *Store) mappingTags(ctx context.Context, ratingKey, site string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag FROM mapping_tags WHERE rating_key = ? AND site = ? ORDER BY tag`,
		ratingKey, site)
	if err != nil {
		return nil, corrupt("mapping tags", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, corrupt("scan mapping tag", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, corrupt("iterate mapping tags", err)
	}
	return tags, nil
}
