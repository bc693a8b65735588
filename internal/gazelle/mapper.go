package gazelle

import (
	"html"
	"strings"
)

// TorrentRecord is one release folder belonging to a remote group.
type TorrentRecord struct {
	GroupID      string
	PathFragment string
	Files        []string
}

// RemoteGroup is an album-level entry fetched from the site.
type RemoteGroup struct {
	ID      string
	Name    string
	Artist  string
	Tags    []string
	Records []TorrentRecord
}

// Directional formatting runes that sites embed around artist names. They are
// invisible but break string equality, so matching strips them.
const bidiControls = "‎‏‪‫‬‭‮⁦⁧⁨⁩"

// cleanText decodes HTML entities and drops bidi control characters from
// API text fields.
func cleanText(s string) string {
	s = html.UnescapeString(s)
	if !strings.ContainsAny(s, bidiControls) {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(bidiControls, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// splitFileList parses the API file list encoding, "name{{{size}}}" entries
// joined by "|||", into bare file names.
func splitFileList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|||")
	files := make([]string, 0, len(parts))
	for _, part := range parts {
		if idx := strings.Index(part, "{{{"); idx >= 0 {
			part = part[:idx]
		}
		part = cleanText(part)
		if part != "" {
			files = append(files, part)
		}
	}
	return files
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(cleanText(tag))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
