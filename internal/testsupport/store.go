package testsupport

import (
	"context"
	"testing"
	"time"

	"cratesync/internal/config"
	"cratesync/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedAlbum inserts a minimal album row for tests. The fold columns are the
// lowercase fragment/artist/title, which matches the normalizer for plain
// ASCII inputs.
func SeedAlbum(t testing.TB, st *store.Store, ratingKey, path, artist, title, fragmentFold string) {
	t.Helper()

	row := store.AlbumRow{
		RatingKey:    ratingKey,
		Path:         path,
		Artist:       artist,
		Title:        title,
		AddedAt:      time.Now().UTC(),
		FragmentFold: fragmentFold,
	}
	if artist != "" {
		row.ArtistFold = lowerASCII(artist)
	}
	if title != "" {
		row.TitleFold = lowerASCII(title)
	}
	if err := st.UpsertAlbums(context.Background(), []store.AlbumRow{row}); err != nil {
		t.Fatalf("UpsertAlbums: %v", err)
	}
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
