package reconcile_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strconv"
	"testing"
	"time"

	"cratesync/internal/albumindex"
	"cratesync/internal/config"
	"cratesync/internal/gazelle"
	"cratesync/internal/groupsync"
	"cratesync/internal/library"
	"cratesync/internal/matching"
	"cratesync/internal/reconcile"
	"cratesync/internal/store"
	"cratesync/internal/testsupport"
)

// fakeLibrary serves albums for index refreshes and records collection writes.
type fakeLibrary struct {
	albums      []library.Album
	collections map[string][]string
	names       map[string]string
	nextKey     int
}

func newFakeLibrary(albums ...library.Album) *fakeLibrary {
	return &fakeLibrary{
		albums:      albums,
		collections: make(map[string][]string),
		names:       make(map[string]string),
		nextKey:     500,
	}
}

func (f *fakeLibrary) AlbumsAddedSince(_ context.Context, since time.Time) ([]library.Album, error) {
	var out []library.Album
	for _, album := range f.albums {
		if album.AddedAt.After(since) {
			out = append(out, album)
		}
	}
	return out, nil
}

func (f *fakeLibrary) AlbumFiles(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *fakeLibrary) CollectionByName(_ context.Context, name string) (*library.Collection, error) {
	for key, n := range f.names {
		if n == name {
			return &library.Collection{RatingKey: key, Name: n}, nil
		}
	}
	return nil, nil
}

func (f *fakeLibrary) CreateCollection(_ context.Context, name string, ratingKeys []string) (*library.Collection, error) {
	key := strconv.Itoa(f.nextKey)
	f.nextKey++
	f.names[key] = name
	f.collections[key] = append([]string(nil), ratingKeys...)
	return &library.Collection{RatingKey: key, Name: name}, nil
}

func (f *fakeLibrary) AddToCollection(_ context.Context, collection *library.Collection, ratingKeys []string) error {
	f.collections[collection.RatingKey] = append(f.collections[collection.RatingKey], ratingKeys...)
	return nil
}

func (f *fakeLibrary) membersByName(name string) []string {
	for key, n := range f.names {
		if n == name {
			members := append([]string(nil), f.collections[key]...)
			sort.Strings(members)
			return members
		}
	}
	return nil
}

func album(key, path, artist, title string) library.Album {
	return library.Album{
		RatingKey: key,
		Path:      path,
		Artist:    artist,
		Title:     title,
		AddedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func siteFor(url string) config.Site {
	return config.Site{
		BaseURL:          url,
		APIKey:           "test-key",
		RateLimitCalls:   100,
		RateLimitSeconds: 1,
		MaxRetries:       0,
		RequestTimeout:   5,
		RetryBaseSeconds: 1,
	}
}

func newProcessor(t *testing.T, lib *fakeLibrary, handler http.Handler) (*reconcile.Processor, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fetcher := gazelle.NewFetcher(gazelle.NewClient(siteFor(server.URL), nil), "red", nil)
	index := albumindex.New(st, lib, nil)
	matcher := matching.New(index, matching.StrategyPath, nil)
	syncer := groupsync.New(st, lib, groupsync.AlwaysAdopt{}, nil)
	return reconcile.NewProcessor(index, fetcher, matcher, matching.AutoSkip{}, syncer, nil), st
}

func collageHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "collage":
			switch r.URL.Query().Get("id") {
			case "42":
				w.Write([]byte(`{"status":"success","response":{
					"name":"Best of 2020","torrentGroupIDList":[100,200]}}`))
			default:
				w.Write([]byte(`{"status":"failure","error":"bad id parameter"}`))
			}
		case "torrentgroup":
			id := r.URL.Query().Get("id")
			var fragment string
			switch id {
			case "100":
				fragment = "Radiohead - OK Computer"
			case "200":
				fragment = "Missing - Album"
			}
			w.Write([]byte(`{"status":"success","response":{
				"group":{"id":` + id + `,"name":"G` + id + `"},
				"torrents":[{"filePath":"` + fragment + `","fileList":""}]}}`))
		case "bookmarks":
			w.Write([]byte(`{"status":"success","response":{"bookmarks":[
				{"id":9,"name":"OK Computer","artist":"Radiohead",
				 "torrents":[{"filePath":"Radiohead - OK Computer","fileList":""}]}]}}`))
		default:
			t.Errorf("unexpected action %q", r.URL.Query().Get("action"))
		}
	})
}

func TestRunSyncsCollage(t *testing.T) {
	lib := newFakeLibrary(album("1", "/music/Radiohead - OK Computer", "Radiohead", "OK Computer"))
	processor, st := newProcessor(t, lib, collageHandler(t))

	reports, err := processor.Run(context.Background(), []reconcile.Target{
		{Kind: store.KindCollage, RemoteID: "42"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	report := reports[0]
	if report.Err != nil {
		t.Fatalf("unexpected target error: %v", report.Err)
	}
	if report.Name != "Best of 2020" || report.Matched != 1 || report.Unmatched != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Outcome.Action != groupsync.ActionCreated {
		t.Fatalf("unexpected outcome: %+v", report.Outcome)
	}
	if got := lib.membersByName("Best of 2020"); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("unexpected collection members: %v", got)
	}

	grouping, err := st.GetGrouping(context.Background(), store.KindCollage, "42")
	if err != nil {
		t.Fatalf("GetGrouping failed: %v", err)
	}
	if grouping == nil || !reflect.DeepEqual(grouping.MemberKeys, []string{"1"}) {
		t.Fatalf("grouping not persisted: %+v", grouping)
	}
}

func TestRunIsolatesFailedTargets(t *testing.T) {
	lib := newFakeLibrary(album("1", "/music/Radiohead - OK Computer", "Radiohead", "OK Computer"))
	processor, _ := newProcessor(t, lib, collageHandler(t))

	reports, err := processor.Run(context.Background(), []reconcile.Target{
		{Kind: store.KindCollage, RemoteID: "404"},
		{Kind: store.KindCollage, RemoteID: "42"},
	})
	if err != nil {
		t.Fatalf("Run must survive a missing collage, got %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if !errors.Is(reports[0].Err, gazelle.ErrRemoteNotFound) {
		t.Fatalf("expected not-found error for dead collage, got %v", reports[0].Err)
	}
	if reports[1].Err != nil {
		t.Fatalf("second target should succeed, got %v", reports[1].Err)
	}
}

func TestRunSyncsBookmarks(t *testing.T) {
	lib := newFakeLibrary(album("1", "/music/Radiohead - OK Computer", "Radiohead", "OK Computer"))
	processor, _ := newProcessor(t, lib, collageHandler(t))

	reports, err := processor.Run(context.Background(), []reconcile.Target{
		{Kind: store.KindBookmark},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reports[0].Err != nil {
		t.Fatalf("unexpected target error: %v", reports[0].Err)
	}
	if reports[0].Name != "RED Bookmarks" {
		t.Fatalf("unexpected bookmarks collection name %q", reports[0].Name)
	}
	if got := lib.membersByName("RED Bookmarks"); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("unexpected collection members: %v", got)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	lib := newFakeLibrary(album("1", "/music/Radiohead - OK Computer", "Radiohead", "OK Computer"))
	processor, _ := newProcessor(t, lib, collageHandler(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := processor.Run(ctx, []reconcile.Target{{Kind: store.KindCollage, RemoteID: "42"}}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
