// Package albumindex keeps a local snapshot of the music library for offline
// matching. Refreshes are incremental: only albums added since the last
// successful refresh are fetched, keyed by a persisted watermark.
package albumindex
