package library

import (
	"context"
	"time"
)

// Album is one album entry in the managed music library. RatingKey is the
// library's stable identifier for the item; Path is the folder holding the
// album's files.
type Album struct {
	RatingKey string
	Path      string
	Artist    string
	Title     string
	AddedAt   time.Time
}

// Collection is a named grouping of albums inside the library.
type Collection struct {
	RatingKey string
	Name      string
}

// Service defines the library operations cratesync depends on. Implementations
// talk to a concrete media server; tests substitute fakes.
type Service interface {
	// AlbumsAddedSince returns albums added to the music section strictly
	// after the given time. A zero time returns every album.
	AlbumsAddedSince(ctx context.Context, since time.Time) ([]Album, error)

	// AlbumFiles returns the file names of an album's tracks.
	AlbumFiles(ctx context.Context, ratingKey string) ([]string, error)

	// CollectionByName returns the collection with the exact title, or nil
	// when no such collection exists.
	CollectionByName(ctx context.Context, name string) (*Collection, error)

	// CreateCollection creates a new collection containing the given albums.
	CreateCollection(ctx context.Context, name string, ratingKeys []string) (*Collection, error)

	// AddToCollection appends albums to an existing collection.
	AddToCollection(ctx context.Context, collection *Collection, ratingKeys []string) error
}
