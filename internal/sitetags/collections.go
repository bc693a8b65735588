package sitetags

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cratesync/internal/groupsync"
	"cratesync/internal/logging"
	"cratesync/internal/store"
)

// Builder creates collections from previously scanned tag mappings. It reads
// only the local store, so building a tag collection costs no site requests.
type Builder struct {
	store  *store.Store
	syncer *groupsync.Syncer
	site   string
	logger *slog.Logger
}

func NewBuilder(st *store.Store, syncer *groupsync.Syncer, site string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:  st,
		syncer: syncer,
		site:   site,
		logger: logging.WithComponent(logger, "sitetags"),
	}
}

// Build syncs a collection of albums carrying every requested tag. Tags
// combine with AND semantics: an album qualifies only when its mapping has
// all of them. An empty name derives one from the tags.
func (b *Builder) Build(ctx context.Context, tags []string, name string) (groupsync.Outcome, error) {
	canonical := canonicalTags(tags)
	if len(canonical) == 0 {
		return groupsync.Outcome{}, fmt.Errorf("at least one tag is required")
	}
	if name == "" {
		name = defaultName(canonical)
	}

	keys, err := b.store.RatingKeysByTags(ctx, b.site, canonical)
	if err != nil {
		return groupsync.Outcome{}, err
	}
	b.logger.Info("tag query resolved", "site", b.site, "tags", strings.Join(canonical, ","), "albums", len(keys))

	remoteID := strings.Join(canonical, "+")
	return b.syncer.Sync(ctx, store.KindTagSet, remoteID, b.site, name, keys)
}

func canonicalTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func defaultName(tags []string) string {
	return "Tags: " + strings.Join(tags, ", ")
}
