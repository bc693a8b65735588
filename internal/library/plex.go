package library

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cratesync/internal/config"
)

const (
	plexProductName = "cratesync"
	plexTrackType   = "10"
	plexAlbumType   = "9"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// PlexService implements Service against the Plex HTTP API.
type PlexService struct {
	baseURL     string
	token       string
	sectionName string
	client      HTTPDoer
	identifier  string

	mu         sync.Mutex
	sectionKey string
	machineID  string
}

// NewPlexService constructs a Plex-backed library service from configuration.
func NewPlexService(cfg *config.Config) *PlexService {
	timeout := time.Duration(cfg.Plex.TimeoutSeconds) * time.Second
	return &PlexService{
		baseURL:     strings.TrimRight(cfg.Plex.URL, "/"),
		token:       cfg.Plex.Token,
		sectionName: cfg.Plex.SectionName,
		client:      &http.Client{Timeout: timeout},
		identifier:  uuid.NewString(),
	}
}

// NewPlexServiceWithClient constructs a Plex service with an explicit HTTP
// backend, primarily for tests.
func NewPlexServiceWithClient(baseURL, token, sectionName string, client HTTPDoer) *PlexService {
	return &PlexService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		sectionName: sectionName,
		client:      client,
		identifier:  uuid.NewString(),
	}
}

type plexContainer struct {
	MediaContainer struct {
		MachineIdentifier string         `json:"machineIdentifier"`
		Directory         []plexMetadata `json:"Directory"`
		Metadata          []plexMetadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

type plexMetadata struct {
	RatingKey        string      `json:"ratingKey"`
	Key              string      `json:"key"`
	Title            string      `json:"title"`
	ParentRatingKey  string      `json:"parentRatingKey"`
	ParentTitle      string      `json:"parentTitle"`
	GrandparentTitle string      `json:"grandparentTitle"`
	AddedAt          int64       `json:"addedAt"`
	Media            []plexMedia `json:"Media"`
}

type plexMedia struct {
	Part []plexPart `json:"Part"`
}

type plexPart struct {
	File string `json:"file"`
}

// AlbumsAddedSince queries music tracks added after the watermark and folds
// them into one album per parent rating key, deriving the album folder from
// the first track's file path.
func (s *PlexService) AlbumsAddedSince(ctx context.Context, since time.Time) ([]Album, error) {
	sectionKey, err := s.ensureSectionKey(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("type", plexTrackType)
	if !since.IsZero() {
		params.Set("addedAt>>", strconv.FormatInt(since.Unix(), 10))
	}

	var container plexContainer
	path := fmt.Sprintf("/library/sections/%s/all", sectionKey)
	if err := s.get(ctx, path, params, &container); err != nil {
		return nil, err
	}

	albums := make(map[string]Album)
	for _, track := range container.MediaContainer.Metadata {
		if track.ParentRatingKey == "" {
			continue
		}
		if _, ok := albums[track.ParentRatingKey]; ok {
			continue
		}
		file := firstPartFile(track.Media)
		if file == "" {
			continue
		}
		albums[track.ParentRatingKey] = Album{
			RatingKey: track.ParentRatingKey,
			Path:      filepath.Dir(file),
			Artist:    track.GrandparentTitle,
			Title:     track.ParentTitle,
			AddedAt:   time.Unix(track.AddedAt, 0).UTC(),
		}
	}

	result := make([]Album, 0, len(albums))
	for _, album := range albums {
		result = append(result, album)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AddedAt.Before(result[j].AddedAt) })
	return result, nil
}

// AlbumFiles returns the base file names of an album's tracks.
func (s *PlexService) AlbumFiles(ctx context.Context, ratingKey string) ([]string, error) {
	var container plexContainer
	path := fmt.Sprintf("/library/metadata/%s/children", url.PathEscape(ratingKey))
	if err := s.get(ctx, path, nil, &container); err != nil {
		return nil, err
	}

	var files []string
	for _, track := range container.MediaContainer.Metadata {
		if file := firstPartFile(track.Media); file != "" {
			files = append(files, filepath.Base(file))
		}
	}
	return files, nil
}

// CollectionByName finds a collection in the music section by exact title.
func (s *PlexService) CollectionByName(ctx context.Context, name string) (*Collection, error) {
	sectionKey, err := s.ensureSectionKey(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("title", name)
	var container plexContainer
	path := fmt.Sprintf("/library/sections/%s/collections", sectionKey)
	if err := s.get(ctx, path, params, &container); err != nil {
		return nil, err
	}

	for _, entry := range container.MediaContainer.Metadata {
		if entry.Title == name {
			return &Collection{RatingKey: entry.RatingKey, Name: entry.Title}, nil
		}
	}
	return nil, nil
}

// CreateCollection creates a collection containing the provided albums.
func (s *PlexService) CreateCollection(ctx context.Context, name string, ratingKeys []string) (*Collection, error) {
	sectionKey, err := s.ensureSectionKey(ctx)
	if err != nil {
		return nil, err
	}
	itemURI, err := s.metadataURI(ctx, ratingKeys)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("type", plexAlbumType)
	params.Set("title", name)
	params.Set("smart", "0")
	params.Set("sectionId", sectionKey)
	params.Set("uri", itemURI)

	var container plexContainer
	if err := s.do(ctx, http.MethodPost, "/library/collections", params, &container); err != nil {
		return nil, err
	}
	if len(container.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("plex create collection %q: empty response", name)
	}
	created := container.MediaContainer.Metadata[0]
	return &Collection{RatingKey: created.RatingKey, Name: created.Title}, nil
}

// AddToCollection appends albums to an existing collection.
func (s *PlexService) AddToCollection(ctx context.Context, collection *Collection, ratingKeys []string) error {
	if len(ratingKeys) == 0 {
		return nil
	}
	itemURI, err := s.metadataURI(ctx, ratingKeys)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("uri", itemURI)
	path := fmt.Sprintf("/library/collections/%s/items", url.PathEscape(collection.RatingKey))
	return s.do(ctx, http.MethodPut, path, params, nil)
}

func (s *PlexService) metadataURI(ctx context.Context, ratingKeys []string) (string, error) {
	machineID, err := s.ensureMachineID(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s",
		machineID, strings.Join(ratingKeys, ",")), nil
}

func (s *PlexService) ensureSectionKey(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sectionKey != "" {
		return s.sectionKey, nil
	}

	var container plexContainer
	if err := s.getLocked(ctx, "/library/sections", nil, &container); err != nil {
		return "", err
	}
	for _, dir := range container.MediaContainer.Directory {
		if strings.EqualFold(dir.Title, s.sectionName) {
			s.sectionKey = dir.Key
			return s.sectionKey, nil
		}
	}
	return "", fmt.Errorf("plex music section %q not found", s.sectionName)
}

func (s *PlexService) ensureMachineID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machineID != "" {
		return s.machineID, nil
	}

	var container plexContainer
	if err := s.getLocked(ctx, "/", nil, &container); err != nil {
		return "", err
	}
	if container.MediaContainer.MachineIdentifier == "" {
		return "", fmt.Errorf("plex server identity: missing machine identifier")
	}
	s.machineID = container.MediaContainer.MachineIdentifier
	return s.machineID, nil
}

func (s *PlexService) get(ctx context.Context, path string, params url.Values, out any) error {
	return s.do(ctx, http.MethodGet, path, params, out)
}

// getLocked issues a GET while s.mu is held; it must not call ensure helpers.
func (s *PlexService) getLocked(ctx context.Context, path string, params url.Values, out any) error {
	return s.do(ctx, http.MethodGet, path, params, out)
}

func (s *PlexService) do(ctx context.Context, method, path string, params url.Values, out any) error {
	endpoint := s.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build plex request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", s.token)
	req.Header.Set("X-Plex-Client-Identifier", s.identifier)
	req.Header.Set("X-Plex-Product", plexProductName)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("plex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("plex %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode plex response: %w", err)
	}
	return nil
}

func firstPartFile(media []plexMedia) string {
	for _, m := range media {
		for _, part := range m.Part {
			if part.File != "" {
				return part.File
			}
		}
	}
	return ""
}
