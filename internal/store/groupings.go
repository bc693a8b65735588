package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// GetGrouping retrieves one grouping and its member keys, or nil when no
// grouping exists for the (kind, remote id) pair.
func (s *Store) GetGrouping(ctx context.Context, kind Kind, remoteID string) (*Grouping, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT kind, remote_id, name, site, collection_key, updated_at
         FROM groupings WHERE kind = ? AND remote_id = ?`, kind, remoteID)
	grouping, err := scanGrouping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, corrupt("get grouping", err)
	}

	members, err := s.groupingMembers(ctx, kind, remoteID)
	if err != nil {
		return nil, err
	}
	grouping.MemberKeys = members
	return &grouping, nil
}

// SaveGrouping upserts a grouping and replaces its member set.
func (s *Store) SaveGrouping(ctx context.Context, grouping Grouping) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grouping save: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO groupings(kind, remote_id, name, site, collection_key, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		grouping.Kind,
		grouping.RemoteID,
		grouping.Name,
		grouping.Site,
		grouping.CollectionKey,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert grouping: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM grouping_members WHERE kind = ? AND remote_id = ?`,
		grouping.Kind, grouping.RemoteID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear grouping members: %w", err)
	}

	for _, key := range grouping.MemberKeys {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO grouping_members(kind, remote_id, rating_key) VALUES (?, ?, ?)`,
			grouping.Kind, grouping.RemoteID, key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert grouping member: %w", err)
		}
	}

	return tx.Commit()
}

// ListGroupings returns all groupings of a kind with their member keys.
func (s *Store) ListGroupings(ctx context.Context, kind Kind) ([]Grouping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, remote_id, name, site, collection_key, updated_at
         FROM groupings WHERE kind = ? ORDER BY name`, kind)
	if err != nil {
		return nil, corrupt("list groupings", err)
	}
	defer rows.Close()

	var groupings []Grouping
	for rows.Next() {
		grouping, err := scanGrouping(rows)
		if err != nil {
			return nil, corrupt("scan grouping", err)
		}
		groupings = append(groupings, grouping)
	}
	if err := rows.Err(); err != nil {
		return nil, corrupt("iterate groupings", err)
	}

	for i := range groupings {
		members, err := s.groupingMembers(ctx, groupings[i].Kind, groupings[i].RemoteID)
		if err != nil {
			return nil, err
		}
		groupings[i].MemberKeys = members
	}
	return groupings, nil
}

// DeleteGrouping removes one grouping and its members.
func (s *Store) DeleteGrouping(ctx context.Context, kind Kind, remoteID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM groupings WHERE kind = ? AND remote_id = ?`, kind, remoteID); err != nil {
		return fmt.Errorf("delete grouping: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM grouping_members WHERE kind = ? AND remote_id = ?`, kind, remoteID); err != nil {
		return fmt.Errorf("delete grouping members: %w", err)
	}
	return nil
}

// ResetGroupings removes every grouping of a kind.
func (s *Store) ResetGroupings(ctx context.Context, kind Kind) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM groupings WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("reset groupings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM grouping_members WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("reset grouping members: %w", err)
	}
	return nil
}

func (s *Store) groupingMembers(ctx context.Context, kind Kind, remoteID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rating_key FROM grouping_members WHERE kind = ? AND remote_id = ?`,
		kind, remoteID)
	if err != nil {
		return nil, corrupt("grouping members", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, corrupt("scan grouping member", err)
		}
		members = append(members, key)
	}
	if err := rows.Err(); err != nil {
		return nil, corrupt("iterate grouping members", err)
	}
	sort.Strings(members)
	return members, nil
}

func scanGrouping(scanner interface{ Scan(dest ...any) error }) (Grouping, error) {
	var (
		grouping   Grouping
		updatedRaw string
	)
	if err := scanner.Scan(
		&grouping.Kind,
		&grouping.RemoteID,
		&grouping.Name,
		&grouping.Site,
		&grouping.CollectionKey,
		&updatedRaw,
	); err != nil {
		return Grouping{}, err
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		grouping.UpdatedAt = updated
	}
	return grouping, nil
}
