package gazelle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"cratesync/internal/logging"
)

// Fetcher retrieves remote groupings and resolves their album-level records.
type Fetcher struct {
	client *Client
	site   string
	logger *slog.Logger
}

func NewFetcher(client *Client, siteName string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: client,
		site:   siteName,
		logger: logging.WithComponent(logger, "fetcher"),
	}
}

// Site returns the configured site name for this fetcher.
func (f *Fetcher) Site() string {
	return f.site
}

type collageResponse struct {
	Name               string  `json:"name"`
	TorrentGroupIDList []int64 `json:"torrentGroupIDList"`
	TorrentGroups      []struct {
		ID int64 `json:"id"`
	} `json:"torrentgroups"`
}

type torrentGroupResponse struct {
	Group struct {
		ID        int64    `json:"id"`
		Name      string   `json:"name"`
		Tags      []string `json:"tags"`
		MusicInfo struct {
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"musicInfo"`
	} `json:"group"`
	Torrents []struct {
		FilePath string `json:"filePath"`
		FileList string `json:"fileList"`
	} `json:"torrents"`
}

type bookmarksResponse struct {
	Bookmarks []struct {
		ID       int64    `json:"id"`
		Name     string   `json:"name"`
		Artist   string   `json:"artist"`
		Tags     []string `json:"tags"`
		Torrents []struct {
			FilePath string `json:"filePath"`
			FileList string `json:"fileList"`
		} `json:"torrents"`
	} `json:"bookmarks"`
}

type browseResponse struct {
	Results []struct {
		GroupID   int64    `json:"groupId"`
		GroupName string   `json:"groupName"`
		Artist    string   `json:"artist"`
		Tags      []string `json:"tags"`
	} `json:"results"`
}

// Collage fetches a collage and expands each member group into its torrent
// records. The collage endpoint only lists group IDs, so this issues one
// follow-up request per group.
func (f *Fetcher) Collage(ctx context.Context, id string) (string, []RemoteGroup, error) {
	raw, err := f.client.GetJSON(ctx, "collage", url.Values{"id": {id}})
	if err != nil {
		return "", nil, fmt.Errorf("collage %s: %w", id, err)
	}
	var payload collageResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", nil, fmt.Errorf("collage %s: decode: %w", id, err)
	}

	groupIDs := payload.TorrentGroupIDList
	if len(groupIDs) == 0 {
		for _, g := range payload.TorrentGroups {
			groupIDs = append(groupIDs, g.ID)
		}
	}
	name := cleanText(payload.Name)
	f.logger.Info("collage fetched", "site", f.site, "collage", id, "name", name, "groups", len(groupIDs))

	groups := make([]RemoteGroup, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		group, err := f.TorrentGroup(ctx, strconv.FormatInt(groupID, 10))
		if err != nil {
			return "", nil, err
		}
		groups = append(groups, group)
	}
	return name, groups, nil
}

// TorrentGroup fetches one group with its torrent records.
func (f *Fetcher) TorrentGroup(ctx context.Context, id string) (RemoteGroup, error) {
	raw, err := f.client.GetJSON(ctx, "torrentgroup", url.Values{"id": {id}})
	if err != nil {
		return RemoteGroup{}, fmt.Errorf("torrent group %s: %w", id, err)
	}
	var payload torrentGroupResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return RemoteGroup{}, fmt.Errorf("torrent group %s: decode: %w", id, err)
	}

	group := RemoteGroup{
		ID:   strconv.FormatInt(payload.Group.ID, 10),
		Name: cleanText(payload.Group.Name),
		Tags: cleanTags(payload.Group.Tags),
	}
	if len(payload.Group.MusicInfo.Artists) > 0 {
		group.Artist = cleanText(payload.Group.MusicInfo.Artists[0].Name)
	}
	for _, torrent := range payload.Torrents {
		fragment := cleanText(torrent.FilePath)
		if fragment == "" {
			continue
		}
		group.Records = append(group.Records, TorrentRecord{
			GroupID:      group.ID,
			PathFragment: fragment,
			Files:        splitFileList(torrent.FileList),
		})
	}
	return group, nil
}

// Bookmarks fetches the authenticated user's bookmarked groups.
func (f *Fetcher) Bookmarks(ctx context.Context) ([]RemoteGroup, error) {
	raw, err := f.client.GetJSON(ctx, "bookmarks", url.Values{"type": {"torrents"}})
	if err != nil {
		return nil, fmt.Errorf("bookmarks: %w", err)
	}
	var payload bookmarksResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("bookmarks: decode: %w", err)
	}

	groups := make([]RemoteGroup, 0, len(payload.Bookmarks))
	for _, bookmark := range payload.Bookmarks {
		group := RemoteGroup{
			ID:     strconv.FormatInt(bookmark.ID, 10),
			Name:   cleanText(bookmark.Name),
			Artist: cleanText(bookmark.Artist),
			Tags:   cleanTags(bookmark.Tags),
		}
		for _, torrent := range bookmark.Torrents {
			fragment := cleanText(torrent.FilePath)
			if fragment == "" {
				continue
			}
			group.Records = append(group.Records, TorrentRecord{
				GroupID:      group.ID,
				PathFragment: fragment,
				Files:        splitFileList(torrent.FileList),
			})
		}
		groups = append(groups, group)
	}
	f.logger.Info("bookmarks fetched", "site", f.site, "groups", len(groups))
	return groups, nil
}

// SearchFilename finds groups containing a file with the given name. Used by
// the tag scanner to map a local album back to its remote group.
func (f *Fetcher) SearchFilename(ctx context.Context, filename string) ([]RemoteGroup, error) {
	raw, err := f.client.GetJSON(ctx, "browse", url.Values{"filelist": {`"` + filename + `"`}})
	if err != nil {
		return nil, fmt.Errorf("search filename: %w", err)
	}
	var payload browseResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("search filename: decode: %w", err)
	}

	groups := make([]RemoteGroup, 0, len(payload.Results))
	for _, result := range payload.Results {
		groups = append(groups, RemoteGroup{
			ID:     strconv.FormatInt(result.GroupID, 10),
			Name:   cleanText(result.GroupName),
			Artist: cleanText(result.Artist),
			Tags:   cleanTags(result.Tags),
		})
	}
	return groups, nil
}
