// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// ContentType classifies a retrieved document.
type ContentType string

const (
	ContentProfile ContentType = "profile"
	ContentAlbum   ContentType = "album"
	ContentSong    ContentType = "song"
	ContentWeb     ContentType = "web"
)

// Document is a retrieved page. Documents are immutable once fetched; a
// refetch produces a new value.
type Document struct {
	// ID is source-qualified, e.g. "wikipedia:12345".
	ID string `json:"id" yaml:"id"`

	Title string `json:"title" yaml:"title"`

	// URL is the canonical page URL.
	URL string `json:"url" yaml:"url"`

	ContentType ContentType `json:"content_type" yaml:"content_type"`

	// Text is line-structured plain text: headings as "== Heading ==",
	// list items as "* item", table rows as "| a | b |", italics as _x_.
	Text string `json:"text" yaml:"text"`

	WordCount int `json:"word_count" yaml:"word_count"`

	// LastModified is an opaque freshness marker (revision id or date).
	LastModified string `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`

	// Sections lists section headings in document order.
	Sections []string `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// EntityKind distinguishes album and song candidates.
type EntityKind string

const (
	KindAlbum EntityKind = "album"
	KindSong  EntityKind = "song"
)

// ExtractedEntity is an album or song candidate found in one or more
// documents.
type ExtractedEntity struct {
	Name string     `json:"name" yaml:"name"`
	Kind EntityKind `json:"kind" yaml:"kind"`

	// Position is the track number for songs taken from a track listing, 0 otherwise.
	Position int `json:"position,omitempty" yaml:"position,omitempty"`

	// Year is the release year when cited next to the mention, 0 otherwise.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Sources holds the IDs of every document that mentioned the entity.
	Sources []string `json:"sources" yaml:"sources"`

	// Cues lists the independent heuristics that corroborated the mention.
	Cues []string `json:"cues,omitempty" yaml:"cues,omitempty"`

	Confidence float64 `json:"confidence" yaml:"confidence"`

	// PageID is the ID of the dedicated document found for this entity, if any.
	PageID string `json:"page_id,omitempty" yaml:"page_id,omitempty"`
}

// IndexStatus is the overall outcome of an indexing run.
type IndexStatus string

const (
	StatusCompleted IndexStatus = "completed"
	StatusPartial   IndexStatus = "partial"
	StatusFailed    IndexStatus = "failed"
)

// IndexRequest asks for the documents and albums/songs of one artist.
type IndexRequest struct {
	ArtistName string `json:"artist_name" yaml:"artist_name"`

	// ArtistID is an optional external identifier (Wikidata Q-id).
	ArtistID string `json:"artist_id,omitempty" yaml:"artist_id,omitempty"`

	// EnableWebSearch allows the web-search fallback when the structured
	// source yields nothing. It has no effect when no fallback is configured.
	EnableWebSearch bool `json:"enable_web_search,omitempty" yaml:"enable_web_search,omitempty"`
}

// Validate rejects blank artist names.
func (r IndexRequest) Validate() error {
	if strings.TrimSpace(r.ArtistName) == "" {
		return fmt.Errorf("%w: artist name is required", ErrEmptyInput)
	}
	return nil
}

// IndexingResult aggregates the documents and entities found for one
// artist. It is always returned; on failure Status is failed and Error
// explains why.
type IndexingResult struct {
	ArtistName string `json:"artist_name" yaml:"artist_name"`
	ArtistID   string `json:"artist_id,omitempty" yaml:"artist_id,omitempty"`

	WikipediaPages []Document `json:"wikipedia_pages" yaml:"wikipedia_pages"`
	AlbumPages     []Document `json:"album_pages" yaml:"album_pages"`
	SongPages      []Document `json:"song_pages" yaml:"song_pages"`

	AlbumsFound []ExtractedEntity `json:"albums_found" yaml:"albums_found"`
	SongsFound  []ExtractedEntity `json:"songs_found" yaml:"songs_found"`

	TotalPages int         `json:"total_pages" yaml:"total_pages"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
	Status     IndexStatus `json:"status" yaml:"status"`
	Error      string      `json:"error,omitempty" yaml:"error,omitempty"`

	// UsedWebSearch is true when entities came from the web-search fallback.
	UsedWebSearch bool `json:"used_web_search,omitempty" yaml:"used_web_search,omitempty"`
}

// FailedIndexing builds the structured failure response for an artist.
func FailedIndexing(req IndexRequest, err error) IndexingResult {
	return IndexingResult{
		ArtistName:     strings.TrimSpace(req.ArtistName),
		ArtistID:       req.ArtistID,
		WikipediaPages: []Document{},
		AlbumPages:     []Document{},
		SongPages:      []Document{},
		AlbumsFound:    []ExtractedEntity{},
		SongsFound:     []ExtractedEntity{},
		Status:         StatusFailed,
		Error:          err.Error(),
	}
}

// Clone returns a deep copy of r.
func (r IndexingResult) Clone() IndexingResult {
	out := r
	out.WikipediaPages = cloneDocs(r.WikipediaPages)
	out.AlbumPages = cloneDocs(r.AlbumPages)
	out.SongPages = cloneDocs(r.SongPages)
	out.AlbumsFound = cloneEntities(r.AlbumsFound)
	out.SongsFound = cloneEntities(r.SongsFound)
	return out
}

func cloneDocs(docs []Document) []Document {
	if docs == nil {
		return nil
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		d.Sections = cloneStrings(d.Sections)
		out[i] = d
	}
	return out
}

func cloneEntities(ents []ExtractedEntity) []ExtractedEntity {
	if ents == nil {
		return nil
	}
	out := make([]ExtractedEntity, len(ents))
	for i, e := range ents {
		e.Sources = cloneStrings(e.Sources)
		e.Cues = cloneStrings(e.Cues)
		out[i] = e
	}
	return out
}
