package albumindex

import (
	"strings"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// Fold lowercases text for comparison using full Unicode case folding, so
// lookups behave the same for "Sigur Rós" and "SIGUR RÓS".
func Fold(s string) string {
	return foldCaser.String(strings.TrimSpace(s))
}

// NormalizeFragment folds a directory name for fragment matching. Interior
// whitespace runs collapse to a single space so cosmetic differences between
// the remote path and the local folder name do not break equality.
func NormalizeFragment(fragment string) string {
	return strings.Join(strings.Fields(Fold(fragment)), " ")
}

// SplitArtistTitle parses an "Artist - Title" directory name. It splits on the
// first " - " separator; names without one cannot be parsed.
func SplitArtistTitle(fragment string) (artist, title string, ok bool) {
	before, after, found := strings.Cut(fragment, " - ")
	if !found {
		return "", "", false
	}
	artist = strings.TrimSpace(before)
	title = strings.TrimSpace(after)
	if artist == "" || title == "" {
		return "", "", false
	}
	return artist, title, true
}
