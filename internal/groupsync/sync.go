package groupsync

import (
	"context"
	"fmt"
	"log/slog"

	"cratesync/internal/library"
	"cratesync/internal/logging"
	"cratesync/internal/store"
)

// Action describes what a sync did to the local collection.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionSkipped   Action = "skipped"
)

// Outcome reports the result of syncing one remote grouping.
type Outcome struct {
	Action        Action
	Added         int
	CollectionKey string
	Name          string
}

// Confirmer decides whether a sync may adopt a collection that already exists
// in the library but was not created by a previous sync.
type Confirmer interface {
	ConfirmAdopt(name string) (bool, error)
}

// AlwaysAdopt adopts existing collections without asking. Used by forced and
// unattended runs.
type AlwaysAdopt struct{}

func (AlwaysAdopt) ConfirmAdopt(string) (bool, error) { return true, nil }

// NeverAdopt declines adoption, leaving foreign collections untouched.
type NeverAdopt struct{}

func (NeverAdopt) ConfirmAdopt(string) (bool, error) { return false, nil }

// Syncer applies matched rating keys to library collections. Membership only
// grows: albums present in the collection but absent from the current match
// set are never removed, so local curation survives remote churn.
type Syncer struct {
	store     *store.Store
	library   library.Service
	confirmer Confirmer
	logger    *slog.Logger
}

func New(st *store.Store, lib library.Service, confirmer Confirmer, logger *slog.Logger) *Syncer {
	if confirmer == nil {
		confirmer = NeverAdopt{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:     st,
		library:   lib,
		confirmer: confirmer,
		logger:    logging.WithComponent(logger, "groupsync"),
	}
}

// Sync reconciles one remote grouping with its library collection. The first
// sync creates the collection (or adopts an existing one after confirmation);
// later syncs add only albums not yet recorded as members. Running twice with
// the same input is a no-op.
func (s *Syncer) Sync(ctx context.Context, kind store.Kind, remoteID, site, name string, matchedKeys []string) (Outcome, error) {
	prior, err := s.store.GetGrouping(ctx, kind, remoteID)
	if err != nil {
		return Outcome{}, err
	}
	if prior == nil {
		return s.firstSync(ctx, kind, remoteID, site, name, matchedKeys)
	}

	added := difference(matchedKeys, prior.MemberKeys)
	if len(added) == 0 {
		s.logger.Info("collection unchanged", "name", prior.Name, "members", len(prior.MemberKeys))
		return Outcome{Action: ActionUnchanged, CollectionKey: prior.CollectionKey, Name: prior.Name}, nil
	}

	collection := &library.Collection{RatingKey: prior.CollectionKey, Name: prior.Name}
	if err := s.library.AddToCollection(ctx, collection, added); err != nil {
		return Outcome{}, fmt.Errorf("add to collection %q: %w", prior.Name, err)
	}

	prior.MemberKeys = append(prior.MemberKeys, added...)
	if err := s.store.SaveGrouping(ctx, *prior); err != nil {
		return Outcome{}, err
	}
	s.logger.Info("collection updated", "name", prior.Name, "added", len(added))
	return Outcome{Action: ActionUpdated, Added: len(added), CollectionKey: prior.CollectionKey, Name: prior.Name}, nil
}

func (s *Syncer) firstSync(ctx context.Context, kind store.Kind, remoteID, site, name string, matchedKeys []string) (Outcome, error) {
	if len(matchedKeys) == 0 {
		s.logger.Info("no matched albums, skipping collection", "name", name)
		return Outcome{Action: ActionUnchanged, Name: name}, nil
	}

	existing, err := s.library.CollectionByName(ctx, name)
	if err != nil {
		return Outcome{}, fmt.Errorf("look up collection %q: %w", name, err)
	}

	var collection *library.Collection
	if existing != nil {
		ok, err := s.confirmer.ConfirmAdopt(name)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			s.logger.Warn("collection exists and adoption declined", "name", name)
			return Outcome{Action: ActionSkipped, Name: name}, nil
		}
		if err := s.library.AddToCollection(ctx, existing, matchedKeys); err != nil {
			return Outcome{}, fmt.Errorf("add to collection %q: %w", name, err)
		}
		collection = existing
	} else {
		collection, err = s.library.CreateCollection(ctx, name, matchedKeys)
		if err != nil {
			return Outcome{}, fmt.Errorf("create collection %q: %w", name, err)
		}
	}

	grouping := store.Grouping{
		Kind:          kind,
		RemoteID:      remoteID,
		Name:          name,
		Site:          site,
		CollectionKey: collection.RatingKey,
		MemberKeys:    matchedKeys,
	}
	if err := s.store.SaveGrouping(ctx, grouping); err != nil {
		return Outcome{}, err
	}

	action := ActionCreated
	if existing != nil {
		action = ActionUpdated
	}
	s.logger.Info("collection synced", "name", name, "action", string(action), "members", len(matchedKeys))
	return Outcome{Action: action, Added: len(matchedKeys), CollectionKey: collection.RatingKey, Name: name}, nil
}

// difference returns the keys in want that are missing from have, preserving
// order.
func difference(want, have []string) []string {
	existing := make(map[string]struct{}, len(have))
	for _, key := range have {
		existing[key] = struct{}{}
	}
	var missing []string
	for _, key := range want {
		if _, ok := existing[key]; !ok {
			missing = append(missing, key)
			existing[key] = struct{}{}
		}
	}
	return missing
}
