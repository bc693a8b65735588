package albumindex_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cratesync/internal/albumindex"
	"cratesync/internal/library"
	"cratesync/internal/testsupport"
)

type fakeLibrary struct {
	albums    []library.Album
	err       error
	lastSince time.Time
}

func (f *fakeLibrary) AlbumsAddedSince(ctx context.Context, since time.Time) ([]library.Album, error) {
	f.lastSince = since
	if f.err != nil {
		return nil, f.err
	}
	var out []library.Album
	for _, album := range f.albums {
		if album.AddedAt.After(since) {
			out = append(out, album)
		}
	}
	return out, nil
}

func (f *fakeLibrary) AlbumFiles(ctx context.Context, ratingKey string) ([]string, error) {
	return nil, nil
}

func (f *fakeLibrary) CollectionByName(ctx context.Context, name string) (*library.Collection, error) {
	return nil, nil
}

func (f *fakeLibrary) CreateCollection(ctx context.Context, name string, ratingKeys []string) (*library.Collection, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLibrary) AddToCollection(ctx context.Context, collection *library.Collection, ratingKeys []string) error {
	return errors.New("not implemented")
}

func TestRefreshIndexesNewAlbums(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	lib := &fakeLibrary{albums: []library.Album{
		{RatingKey: "1", Path: "/music/Radiohead - OK Computer", Artist: "Radiohead", Title: "OK Computer", AddedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{RatingKey: "2", Path: "/music/Low - Things We Lost", Artist: "Low", Title: "Things We Lost", AddedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}}
	ix := albumindex.New(st, lib, nil)

	added, err := ix.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 albums fetched, got %d", added)
	}
	if !lib.lastSince.IsZero() {
		t.Fatalf("first refresh should query from the zero watermark, got %v", lib.lastSince)
	}

	albums, err := ix.LookupByFragment(ctx, "Radiohead - OK Computer")
	if err != nil {
		t.Fatalf("LookupByFragment failed: %v", err)
	}
	if len(albums) != 1 || albums[0].RatingKey != "1" {
		t.Fatalf("unexpected lookup result: %+v", albums)
	}
}

func TestRefreshIsIncremental(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	lib := &fakeLibrary{albums: []library.Album{
		{RatingKey: "1", Path: "/music/A - A", Artist: "A", Title: "A", AddedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	ix := albumindex.New(st, lib, nil)

	if _, err := ix.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// Second refresh starts from the watermark and sees nothing new.
	added, err := ix.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if added != 0 {
		t.Fatalf("expected no new albums, got %d", added)
	}
	if !lib.lastSince.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected refresh from watermark, got %v", lib.lastSince)
	}

	lib.albums = append(lib.albums, library.Album{
		RatingKey: "2", Path: "/music/B - B", Artist: "B", Title: "B",
		AddedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	added, err = ix.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 new album, got %d", added)
	}
	count, err := ix.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 indexed albums, got %d", count)
	}
}

func TestRefreshKeepsWatermarkOnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	lib := &fakeLibrary{err: errors.New("server unavailable")}
	ix := albumindex.New(st, lib, nil)

	if _, err := ix.Refresh(ctx); err == nil {
		t.Fatal("expected refresh to fail")
	}

	mark, err := st.AlbumWatermark(ctx)
	if err != nil {
		t.Fatalf("AlbumWatermark failed: %v", err)
	}
	if !mark.IsZero() {
		t.Fatalf("watermark must not advance on failure, got %v", mark)
	}
}

func TestLookupByMetadataFoldsCase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	lib := &fakeLibrary{albums: []library.Album{
		{RatingKey: "1", Path: "/music/Sigur Rós - Ágætis Byrjun", Artist: "Sigur Rós", Title: "Ágætis Byrjun", AddedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	ix := albumindex.New(st, lib, nil)
	if _, err := ix.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	albums, err := ix.LookupByMetadata(ctx, "SIGUR RÓS", "ágætis byrjun")
	if err != nil {
		t.Fatalf("LookupByMetadata failed: %v", err)
	}
	if len(albums) != 1 || albums[0].RatingKey != "1" {
		t.Fatalf("unexpected lookup result: %+v", albums)
	}
}
