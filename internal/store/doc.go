// Package store persists cratesync state in a single SQLite database: the
// album index snapshot with its refresh watermark, the grouping store mapping
// remote collages/bookmarks/tag sets to library collections, and per-site tag
// mappings.
//
// Open acquires a flock-based writer lock next to the database file, so two
// processes never mutate the same database concurrently. Structural read
// failures surface as CorruptionError and abort the whole run.
package store
