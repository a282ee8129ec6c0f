// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/music-curator/internal/acquire"
	"github.com/pdiddy/music-curator/internal/extract"
	"github.com/pdiddy/music-curator/pkg/types"
)

// SearchHit is one full-text search result.
type SearchHit struct {
	PageID  int
	Title   string
	Snippet string
}

// WikipediaSource searches and fetches pages through the MediaWiki action
// API.
type WikipediaSource struct {
	server   *acquire.Server
	endpoint string
	pageBase string
}

// NewWikipediaSource creates a source that issues requests through server.
func NewWikipediaSource(server *acquire.Server, endpoint, pageBase string) *WikipediaSource {
	return &WikipediaSource{server: server, endpoint: endpoint, pageBase: pageBase}
}

// MediaWiki API response for list=search.
type searchResponse struct {
	Continue struct {
		SrOffset int `json:"sroffset"`
	} `json:"continue"`
	Query struct {
		Search []struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

// MediaWiki API response for action=parse with formatversion=2.
type parseResponse struct {
	Parse struct {
		Title    string `json:"title"`
		PageID   int    `json:"pageid"`
		RevID    int    `json:"revid"`
		Text     string `json:"text"`
		Sections []struct {
			Line  string `json:"line"`
			Level string `json:"level"`
		} `json:"sections"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

type searchPage struct {
	hits []SearchHit
	next int
}

// Search runs one page of full-text search. next is the offset of the
// following page, or 0 when there is none. Pages are cached for the
// source's TTL.
func (w *WikipediaSource) Search(ctx context.Context, query string, limit, offset int) ([]SearchHit, int, error) {
	key := acquire.CacheKey("wikipedia-search", query, limit, offset)
	page, _, err := acquire.Cached(ctx, w.server, key, w.server.Config().CacheTTL, func(ctx context.Context) (searchPage, error) {
		return w.search(ctx, query, limit, offset)
	})
	return page.hits, page.next, err
}

func (w *WikipediaSource) search(ctx context.Context, query string, limit, offset int) (searchPage, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srsearch":      {query},
		"srlimit":       {strconv.Itoa(limit)},
		"srprop":        {"snippet"},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	if offset > 0 {
		params.Set("sroffset", strconv.Itoa(offset))
	}

	var resp searchResponse
	if err := w.server.GetJSON(ctx, w.endpoint+"?"+params.Encode(), nil, &resp); err != nil {
		return searchPage{}, fmt.Errorf("wikipedia search %q: %w", query, err)
	}
	page := searchPage{next: resp.Continue.SrOffset}
	for _, r := range resp.Query.Search {
		snippet, err := extract.HTMLToText(r.Snippet)
		if err != nil {
			snippet = r.Snippet
		}
		page.hits = append(page.hits, SearchHit{PageID: r.PageID, Title: r.Title, Snippet: snippet})
	}
	return page, nil
}

// SearchUntil pages through search results for query, keeping hits that
// accept admits, until want hits are kept or maxPages pages are read.
func (w *WikipediaSource) SearchUntil(ctx context.Context, query string, perPage, maxPages, want int, accept func(SearchHit) bool) ([]SearchHit, error) {
	var kept []SearchHit
	offset := 0
	for page := 0; page < maxPages && len(kept) < want; page++ {
		hits, next, err := w.Search(ctx, query, perPage, offset)
		if err != nil {
			return kept, err
		}
		for _, h := range hits {
			if accept(h) {
				kept = append(kept, h)
				if len(kept) == want {
					break
				}
			}
		}
		if next <= offset {
			break
		}
		offset = next
	}
	return kept, nil
}

// Page fetches and renders one page as a Document of type ct. Rendered
// pages are cached for the source's TTL.
func (w *WikipediaSource) Page(ctx context.Context, pageID int, ct types.ContentType) (types.Document, error) {
	key := acquire.CacheKey("wikipedia-page", pageID, string(ct))
	doc, _, err := acquire.Cached(ctx, w.server, key, w.server.Config().CacheTTL, func(ctx context.Context) (types.Document, error) {
		return w.page(ctx, pageID, ct)
	})
	return doc, err
}

func (w *WikipediaSource) page(ctx context.Context, pageID int, ct types.ContentType) (types.Document, error) {
	params := url.Values{
		"action":             {"parse"},
		"pageid":             {strconv.Itoa(pageID)},
		"prop":               {"text|sections|revid"},
		"disableeditsection": {"1"},
		"format":             {"json"},
		"formatversion":      {"2"},
	}

	var resp parseResponse
	if err := w.server.GetJSON(ctx, w.endpoint+"?"+params.Encode(), nil, &resp); err != nil {
		return types.Document{}, fmt.Errorf("wikipedia page %d: %w", pageID, err)
	}
	if resp.Error != nil {
		return types.Document{}, fmt.Errorf("wikipedia page %d: %s: %s", pageID, resp.Error.Code, resp.Error.Info)
	}

	text, err := extract.HTMLToText(resp.Parse.Text)
	if err != nil {
		return types.Document{}, fmt.Errorf("wikipedia page %d: %w", pageID, err)
	}
	sections := make([]string, 0, len(resp.Parse.Sections))
	for _, s := range resp.Parse.Sections {
		sections = append(sections, s.Line)
	}

	doc := types.Document{
		ID:          "wikipedia:" + strconv.Itoa(pageID),
		Title:       resp.Parse.Title,
		URL:         pageURL(w.pageBase, resp.Parse.Title),
		ContentType: ct,
		Text:        text,
		WordCount:   len(strings.Fields(text)),
		Sections:    sections,
	}
	if resp.Parse.RevID > 0 {
		doc.LastModified = "rev:" + strconv.Itoa(resp.Parse.RevID)
	}
	return doc, nil
}

// pageURL builds the canonical article URL. Slashes stay literal, as in
// "AC/DC".
func pageURL(base, title string) string {
	u := url.URL{Path: strings.ReplaceAll(title, " ", "_")}
	return base + u.EscapedPath()
}
