// Package reconcile drives the sync pipeline: refresh the album index, fetch
// each remote grouping, match its records locally, and apply the matches to
// library collections. Targets are isolated so one dead collage does not sink
// the rest of a run.
package reconcile
