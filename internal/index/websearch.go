// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/music-curator/internal/acquire"
	"github.com/pdiddy/music-curator/pkg/types"
)

// WebResult is one general web-search hit.
type WebResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// WebSearcher is the general web-search fallback.
type WebSearcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]WebResult, error)
}

// CSESource queries the Google Programmable Search (Custom Search JSON)
// API.
type CSESource struct {
	server   *acquire.Server
	endpoint string
	apiKey   string
	engineID string
	results  int
}

// NewCSESource creates a web searcher that issues requests through server.
func NewCSESource(server *acquire.Server, cfg types.WebSearchConfig) *CSESource {
	return &CSESource{
		server:   server,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		results:  cfg.Results,
	}
}

// Name returns the source identifier.
func (c *CSESource) Name() string { return "google-cse" }

type cseResponse struct {
	Items []WebResult `json:"items"`
}

// Search returns up to the configured number of results for query.
func (c *CSESource) Search(ctx context.Context, query string) ([]WebResult, error) {
	params := url.Values{
		"key": {c.apiKey},
		"cx":  {c.engineID},
		"q":   {query},
		"num": {strconv.Itoa(c.results)},
	}
	var resp cseResponse
	if err := c.server.GetJSON(ctx, c.endpoint+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("web search %q: %w", query, err)
	}
	return resp.Items, nil
}

// webQuery is the fallback query for an artist's releases.
func webQuery(artist string) string {
	return artist + " discography albums"
}

// webDocument wraps a web hit as a Document for extraction.
func webDocument(r WebResult) types.Document {
	text := strings.TrimSpace(r.Title + "\n" + strings.Join(strings.Fields(r.Snippet), " "))
	return types.Document{
		ID:          "web:" + r.Link,
		Title:       r.Title,
		URL:         r.Link,
		ContentType: types.ContentWeb,
		Text:        text,
		WordCount:   len(strings.Fields(text)),
	}
}

// webSourceConfig derives the acquisition settings for the fallback from
// the index settings, swapping in the fallback's own rate limits.
func webSourceConfig(cfg types.IndexConfig) types.SourceConfig {
	sc := cfg.SourceConfig
	sc.RequestsPerMinute = cfg.WebSearch.RequestsPerMinute
	sc.RequestsPerHour = cfg.WebSearch.RequestsPerHour
	return sc
}
