package groupsync_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strconv"
	"testing"
	"time"

	"cratesync/internal/groupsync"
	"cratesync/internal/library"
	"cratesync/internal/store"
	"cratesync/internal/testsupport"
)

// fakeCollections implements library.Service over an in-memory collection map.
type fakeCollections struct {
	collections map[string]*fakeCollection
	nextKey     int
	addCalls    int
}

type fakeCollection struct {
	key     string
	name    string
	members map[string]struct{}
}

func newFakeCollections() *fakeCollections {
	return &fakeCollections{collections: make(map[string]*fakeCollection), nextKey: 100}
}

func (f *fakeCollections) AlbumsAddedSince(context.Context, time.Time) ([]library.Album, error) {
	return nil, nil
}

func (f *fakeCollections) AlbumFiles(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *fakeCollections) CollectionByName(_ context.Context, name string) (*library.Collection, error) {
	for _, c := range f.collections {
		if c.name == name {
			return &library.Collection{RatingKey: c.key, Name: c.name}, nil
		}
	}
	return nil, nil
}

func (f *fakeCollections) CreateCollection(_ context.Context, name string, ratingKeys []string) (*library.Collection, error) {
	key := strconv.Itoa(f.nextKey)
	f.nextKey++
	c := &fakeCollection{key: key, name: name, members: make(map[string]struct{})}
	for _, rk := range ratingKeys {
		c.members[rk] = struct{}{}
	}
	f.collections[key] = c
	return &library.Collection{RatingKey: key, Name: name}, nil
}

func (f *fakeCollections) AddToCollection(_ context.Context, collection *library.Collection, ratingKeys []string) error {
	f.addCalls++
	c, ok := f.collections[collection.RatingKey]
	if !ok {
		return errors.New("collection not found")
	}
	for _, rk := range ratingKeys {
		c.members[rk] = struct{}{}
	}
	return nil
}

func (f *fakeCollections) membersOf(key string) []string {
	c, ok := f.collections[key]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(c.members))
	for rk := range c.members {
		members = append(members, rk)
	}
	sort.Strings(members)
	return members
}

func (f *fakeCollections) seed(key, name string, members ...string) {
	c := &fakeCollection{key: key, name: name, members: make(map[string]struct{})}
	for _, rk := range members {
		c.members[rk] = struct{}{}
	}
	f.collections[key] = c
}

func TestFirstSyncCreatesCollection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	lib := newFakeCollections()
	syncer := groupsync.New(st, lib, nil, nil)

	outcome, err := syncer.Sync(context.Background(), store.KindCollage, "42", "red", "Best of 2020", []string{"1", "2"})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if outcome.Action != groupsync.ActionCreated || outcome.Added != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if got := lib.membersOf(outcome.CollectionKey); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("unexpected collection members: %v", got)
	}

	grouping, err := st.GetGrouping(context.Background(), store.KindCollage, "42")
	if err != nil {
		t.Fatalf("GetGrouping failed: %v", err)
	}
	if grouping == nil || grouping.CollectionKey != outcome.CollectionKey {
		t.Fatalf("grouping not persisted: %+v", grouping)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	lib := newFakeCollections()
	syncer := groupsync.New(st, lib, nil, nil)
	ctx := context.Background()

	if _, err := syncer.Sync(ctx, store.KindCollage, "42", "red", "Crate", []string{"1", "2"}); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	outcome, err := syncer.Sync(ctx, store.KindCollage, "42", "red", "Crate", []string{"1", "2"})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if outcome.Action != groupsync.ActionUnchanged {
		t.Fatalf("expected unchanged on repeat, got %+v", outcome)
	}
	if lib.addCalls != 0 {
		t.Fatalf("no-op sync must not touch the library, got %d add calls", lib.addCalls)
	}
}

func TestSyncAddsOnlyNewMembers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	lib := newFakeCollections()
	syncer := groupsync.New(st, lib, nil, nil)
	ctx := context.Background()

	first, err := syncer.Sync(ctx, store.KindCollage, "42", "red", "Crate", []string{"1", "2"})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	outcome, err := syncer.Sync(ctx, store.KindCollage, "42", "red", "Crate", []string{"2", "3"})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if outcome.Action != groupsync.ActionUpdated || outcome.Added != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	// Album 1 dropped out of the match set but membership never shrinks.
	if got := lib.membersOf(first.CollectionKey); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("unexpected members: %v", got)
	}
	grouping, err := st.GetGrouping(ctx, store.KindCollage, "42")
	if err != nil {
		t.Fatalf("GetGrouping failed: %v", err)
	}
	if !reflect.DeepEqual(grouping.MemberKeys, []string{"1", "2", "3"}) {
		t.Fatalf("unexpected persisted members: %v", grouping.MemberKeys)
	}
}

func TestFirstSyncWithNoMatchesCreatesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	lib := newFakeCollections()
	syncer := groupsync.New(st, lib, nil, nil)

	outcome, err := syncer.Sync(context.Background(), store.KindCollage, "42", "red", "Crate", nil)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if outcome.Action != groupsync.ActionUnchanged {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(lib.collections) != 0 {
		t.Fatal("empty match set must not create a collection")
	}
}

func TestFirstSyncAdoptionDeclined(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	lib := newFakeCollections()
	lib.seed("500", "Crate", "9")
	syncer := groupsync.New(st, lib, groupsync.NeverAdopt{}, nil)

	outcome, err := syncer.Sync(context.Background(), store.KindCollage, "42", "red", "Crate", []string{"1"})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if outcome.Action != groupsync.ActionSkipped {
		t.Fatalf("expected skip when adoption declined, got %+v", outcome)
	}
	if got := lib.membersOf("500"); !reflect.DeepEqual(got, []string{"9"}) {
		t.Fatalf("declined adoption must not modify the collection, got %v", got)
	}
	grouping, err := st.GetGrouping(context.Background(), store.KindCollage, "42")
	if err != nil {
		t.Fatalf("GetGrouping failed: %v", err)
	}
	if grouping != nil {
		t.Fatalf("declined adoption must not persist a grouping: %+v", grouping)
	}
}

func TestFirstSyncAdoptsExistingCollection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	lib := newFakeCollections()
	lib.seed("500", "Crate", "9")
	syncer := groupsync.New(st, lib, groupsync.AlwaysAdopt{}, nil)

	outcome, err := syncer.Sync(context.Background(), store.KindCollage, "42", "red", "Crate", []string{"1"})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if outcome.Action != groupsync.ActionUpdated || outcome.CollectionKey != "500" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if got := lib.membersOf("500"); !reflect.DeepEqual(got, []string{"1", "9"}) {
		t.Fatalf("expected union with existing members, got %v", got)
	}
}
