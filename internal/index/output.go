// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/pdiddy/music-curator/pkg/types"
)

// FormatTable writes a human-readable summary of res to w.
func FormatTable(res types.IndexingResult, w io.Writer) {
	fmt.Fprintf(w, "Artist:     %s\n", res.ArtistName)
	fmt.Fprintf(w, "Status:     %s\n", statusColor(res.Status).Sprint(res.Status))
	fmt.Fprintf(w, "Confidence: %.2f\n", res.Confidence)
	fmt.Fprintf(w, "Pages:      %d (profile %d, album %d, song %d)\n",
		res.TotalPages, len(res.WikipediaPages), len(res.AlbumPages), len(res.SongPages))
	if res.UsedWebSearch {
		fmt.Fprintln(w, "Source:     web search fallback")
	}
	if res.Error != "" {
		fmt.Fprintf(w, "%s %s\n", color.RedString("error:"), res.Error)
	}

	writeEntities(w, "Albums", res.AlbumsFound)
	writeEntities(w, "Songs", res.SongsFound)

	if len(res.WikipediaPages)+len(res.AlbumPages)+len(res.SongPages) > 0 {
		fmt.Fprintln(w, "\nPages")
		for _, group := range [][]types.Document{res.WikipediaPages, res.AlbumPages, res.SongPages} {
			for _, d := range group {
				fmt.Fprintf(w, "  %-7s  %-40s  %s\n", d.ContentType, truncate(d.Title, 40), d.URL)
			}
		}
	}
}

func writeEntities(w io.Writer, title string, ents []types.ExtractedEntity) {
	if len(ents) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(ents))
	fmt.Fprintf(w, "  %-40s  %-4s  %-5s  %s\n", "Name", "Year", "Score", "Cues")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 70))
	for _, e := range ents {
		year := ""
		if e.Year > 0 {
			year = fmt.Sprint(e.Year)
		}
		fmt.Fprintf(w, "  %-40s  %-4s  %-5.2f  %s\n", truncate(e.Name, 40), year, e.Confidence, strings.Join(e.Cues, ","))
	}
}

// FormatJSON writes res as indented JSON to w.
func FormatJSON(res types.IndexingResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func statusColor(s types.IndexStatus) *color.Color {
	switch s {
	case types.StatusCompleted:
		return color.New(color.FgGreen)
	case types.StatusPartial:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
