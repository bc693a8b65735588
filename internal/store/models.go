package store

import "time"

// Kind identifies what remote source a grouping mirrors.
type Kind string

const (
	KindCollage  Kind = "collage"
	KindBookmark Kind = "bookmark"
	KindTagSet   Kind = "tag_set"
)

// Grouping is the persisted record of one library collection mirroring a
// remote group. MemberKeys holds the library rating keys last known to belong
// to the collection; membership only ever grows across syncs.
type Grouping struct {
	Kind          Kind
	RemoteID      string
	Name          string
	Site          string
	CollectionKey string
	MemberKeys    []string
	UpdatedAt     time.Time
}

// AlbumRow is one library index entry plus its precomputed fold columns used
// for path-fragment and metadata lookups.
type AlbumRow struct {
	RatingKey    string
	Path         string
	Artist       string
	Title        string
	AddedAt      time.Time
	FragmentFold string
	ArtistFold   string
	TitleFold    string
}

// TagMapping links one library album to the remote group and tags a site
// search returned for it. At most one mapping exists per (album, site).
type TagMapping struct {
	RatingKey string
	Site      string
	GroupID   string
	Tags      []string
	ScannedAt time.Time
}

// TagStats summarizes the tag mapping tables.
type TagStats struct {
	MappedAlbums  int
	DistinctTags  int
	TotalMappings int
}
