package sitetags_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"cratesync/internal/groupsync"
	"cratesync/internal/library"
	"cratesync/internal/sitetags"
	"cratesync/internal/store"
	"cratesync/internal/testsupport"
)

type collectionRecorder struct {
	created map[string][]string
}

func (c *collectionRecorder) AlbumsAddedSince(context.Context, time.Time) ([]library.Album, error) {
	return nil, nil
}

func (c *collectionRecorder) AlbumFiles(context.Context, string) ([]string, error) {
	return nil, nil
}

func (c *collectionRecorder) CollectionByName(context.Context, string) (*library.Collection, error) {
	return nil, nil
}

func (c *collectionRecorder) CreateCollection(_ context.Context, name string, ratingKeys []string) (*library.Collection, error) {
	if c.created == nil {
		c.created = make(map[string][]string)
	}
	c.created[name] = ratingKeys
	return &library.Collection{RatingKey: "700", Name: name}, nil
}

func (c *collectionRecorder) AddToCollection(context.Context, *library.Collection, []string) error {
	return nil
}

func TestBuildCollectionRequiresAllTags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	mappings := []store.TagMapping{
		{RatingKey: "1", Site: "red", GroupID: "100", Tags: []string{"rock", "live"}},
		{RatingKey: "2", Site: "red", GroupID: "101", Tags: []string{"rock"}},
	}
	for _, m := range mappings {
		if err := st.UpsertTagMapping(ctx, m); err != nil {
			t.Fatalf("UpsertTagMapping failed: %v", err)
		}
	}

	lib := &collectionRecorder{}
	syncer := groupsync.New(st, lib, nil, nil)
	builder := sitetags.NewBuilder(st, syncer, "red", nil)

	outcome, err := builder.Build(ctx, []string{"Rock", "live"}, "")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if outcome.Action != groupsync.ActionCreated {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.Name != "Tags: live, rock" {
		t.Fatalf("unexpected derived name %q", outcome.Name)
	}
	if !reflect.DeepEqual(lib.created[outcome.Name], []string{"1"}) {
		t.Fatalf("expected only the fully tagged album, got %v", lib.created[outcome.Name])
	}

	grouping, err := st.GetGrouping(ctx, store.KindTagSet, "live+rock")
	if err != nil {
		t.Fatalf("GetGrouping failed: %v", err)
	}
	if grouping == nil {
		t.Fatal("expected tag set grouping persisted under canonical id")
	}
}

func TestBuildCollectionRejectsEmptyTags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	lib := &collectionRecorder{}
	syncer := groupsync.New(st, lib, nil, nil)
	builder := sitetags.NewBuilder(st, syncer, "red", nil)

	if _, err := builder.Build(context.Background(), []string{"  ", ""}, "X"); err == nil {
		t.Fatal("expected error for empty tag list")
	}
}

func TestBuildCollectionIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.UpsertTagMapping(ctx, store.TagMapping{RatingKey: "1", Site: "red", GroupID: "100", Tags: []string{"jazz"}}); err != nil {
		t.Fatalf("UpsertTagMapping failed: %v", err)
	}

	lib := &collectionRecorder{}
	syncer := groupsync.New(st, lib, nil, nil)
	builder := sitetags.NewBuilder(st, syncer, "red", nil)

	if _, err := builder.Build(ctx, []string{"jazz"}, "Jazz Crate"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	outcome, err := builder.Build(ctx, []string{"JAZZ"}, "Jazz Crate")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if outcome.Action != groupsync.ActionUnchanged {
		t.Fatalf("expected unchanged on repeat build, got %+v", outcome)
	}
}
