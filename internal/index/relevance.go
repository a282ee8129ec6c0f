// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"fmt"
	"strings"

	"github.com/pdiddy/music-curator/internal/textutil"
	"github.com/pdiddy/music-curator/pkg/types"
)

var (
	artistTerms = []string{"musician", "singer", "band", "artist", "rapper", "songwriter", "group", "album", "song"}
	albumTerms  = []string{"album", "song", "music", "recording", "ep", "released"}
	songTerms   = []string{"song", "single", "track", "music", "lyrics"}
)

// profileQueries lists the search variants tried for an artist profile.
func profileQueries(artist string) []string {
	return []string{
		artist,
		artist + " (musician)",
		artist + " (singer)",
		artist + " (band)",
	}
}

// dedicatedQueries lists the search variants for an album or song page.
func dedicatedQueries(name, artist string, kind types.EntityKind) []string {
	return []string{
		fmt.Sprintf("%s (%s %s)", name, artist, kind),
		fmt.Sprintf("%s %s", name, kind),
		fmt.Sprintf("%s %s", artist, name),
	}
}

func isDisambiguation(h SearchHit) bool {
	return strings.Contains(strings.ToLower(h.Title), "disambiguation")
}

// containsName reports whether text contains name as a run of whole words.
func containsName(text, name string) bool {
	return textutil.ContainsWord(text, name)
}

// relevantProfile accepts hits naming the artist in the title, or in a
// snippet that also reads like a music biography.
func relevantProfile(h SearchHit, artist string) bool {
	if isDisambiguation(h) {
		return false
	}
	if containsName(h.Title, artist) {
		return true
	}
	return containsName(h.Snippet, artist) && textutil.ContainsWord(h.Snippet, artistTerms...)
}

// relevantDedicated accepts hits for an album or song page: the title is
// the entity name, optionally qualified by the artist or kind as in
// "Low (David Bowie album)", or the snippet names it alongside a music
// term.
func relevantDedicated(h SearchHit, name, artist string, kind types.EntityKind) bool {
	if isDisambiguation(h) {
		return false
	}
	base, qual := splitQualifier(h.Title)
	if textutil.Normalize(base) == textutil.Normalize(name) {
		return qual == "" || containsName(qual, artist) || textutil.ContainsWord(qual, string(kind))
	}
	terms := albumTerms
	if kind == types.KindSong {
		terms = songTerms
	}
	return containsName(h.Snippet, name) && textutil.ContainsWord(h.Snippet, terms...)
}

// splitQualifier splits "Low (David Bowie album)" into its base title and
// parenthetical qualifier.
func splitQualifier(title string) (string, string) {
	title = strings.TrimSpace(title)
	if !strings.HasSuffix(title, ")") {
		return title, ""
	}
	i := strings.LastIndex(title, " (")
	if i <= 0 {
		return title, ""
	}
	return title[:i], title[i+2 : len(title)-1]
}
