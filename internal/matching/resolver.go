package matching

import (
	"cratesync/internal/gazelle"
	"cratesync/internal/store"
)

// Resolver decides what to do with an ambiguous match. Implementations may
// block, for example to prompt a person at a terminal. Returning a nil album
// without an error skips the record.
type Resolver interface {
	ResolveAmbiguity(record gazelle.TorrentRecord, candidates []store.AlbumRow) (*store.AlbumRow, error)
}

// AutoSkip declines every ambiguous match. This is the safe default for
// unattended runs: a wrong album in a collection is worse than a missing one.
type AutoSkip struct{}

func (AutoSkip) ResolveAmbiguity(gazelle.TorrentRecord, []store.AlbumRow) (*store.AlbumRow, error) {
	return nil, nil
}

// PickFirst accepts the first candidate. Useful for libraries known to hold
// at most one copy of each release.
type PickFirst struct{}

func (PickFirst) ResolveAmbiguity(_ gazelle.TorrentRecord, candidates []store.AlbumRow) (*store.AlbumRow, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}
