// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index gathers the documents that describe an artist and curates
// the albums and songs they mention. A Wikipedia profile is found first;
// its discography drives dedicated album and song page lookups, each of
// which corroborates the extracted entity. A general web search stands in
// when no profile exists and the fallback is configured.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/music-curator/internal/acquire"
	"github.com/pdiddy/music-curator/internal/extract"
	"github.com/pdiddy/music-curator/pkg/types"
)

// Version is reported by Info.
const Version = "1.0.0"

const (
	profileSearchLimit   = 5
	dedicatedSearchLimit = 3
	searchPages          = 2
)

// ErrNothingFound reports that neither a profile page nor any album or
// song was found.
var ErrNothingFound = errors.New("no profile page and no albums or songs found")

// Server is the content index server.
type Server struct {
	cfg       types.IndexConfig
	base      *acquire.Server
	webBase   *acquire.Server
	wiki      *WikipediaSource
	web       WebSearcher
	extractor *extract.Extractor
	logger    *slog.Logger

	acquireOpts    []acquire.Option
	webAcquireOpts []acquire.Option
}

// Option configures a Server.
type Option func(*Server)

// WithWebSearcher sets the web-search fallback, replacing the configured
// Custom Search client.
func WithWebSearcher(w WebSearcher) Option {
	return func(s *Server) { s.web = w }
}

// WithAcquireOptions passes options to the Wikipedia acquisition server.
func WithAcquireOptions(opts ...acquire.Option) Option {
	return func(s *Server) { s.acquireOpts = append(s.acquireOpts, opts...) }
}

// WithWebAcquireOptions passes options to the web-search acquisition
// server.
func WithWebAcquireOptions(opts ...acquire.Option) Option {
	return func(s *Server) { s.webAcquireOpts = append(s.webAcquireOpts, opts...) }
}

// WithExtractor replaces the default entity extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(s *Server) { s.extractor = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New validates cfg and opens the server. The web-search fallback is
// opened only when its credentials are configured.
func New(cfg types.IndexConfig, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.logger = s.logger.With(slog.String("component", "index"))
	if s.extractor == nil {
		s.extractor = extract.New()
	}

	base, err := acquire.Open("wikipedia", cfg.SourceConfig,
		append([]acquire.Option{acquire.WithLogger(s.logger)}, s.acquireOpts...)...)
	if err != nil {
		return nil, err
	}
	s.base = base
	s.wiki = NewWikipediaSource(base, cfg.Endpoint, cfg.PageBase)

	if s.web == nil && cfg.WebSearch.Enabled() {
		webBase, err := acquire.Open("google-cse", webSourceConfig(cfg),
			append([]acquire.Option{acquire.WithLogger(s.logger)}, s.webAcquireOpts...)...)
		if err != nil {
			base.Close()
			return nil, fmt.Errorf("opening web search: %w", err)
		}
		s.webBase = webBase
		s.web = NewCSESource(webBase, cfg.WebSearch)
	}
	return s, nil
}

// Close releases the HTTP sessions.
func (s *Server) Close() error {
	err := s.base.Close()
	if s.webBase != nil {
		err = errors.Join(err, s.webBase.Close())
	}
	return err
}

// Info describes the server.
func (s *Server) Info() acquire.Info {
	caps := []string{
		"wikipedia_profile",
		"album_pages",
		"song_pages",
		"entity_extraction",
		"confidence_scoring",
	}
	if s.web != nil {
		caps = append(caps, "web_search_fallback")
	}
	return acquire.Info{
		Name:         "artist-index",
		Version:      Version,
		Description:  "Index Wikipedia content and discographies for an artist",
		Capabilities: caps,
	}
}

// Index gathers documents and entities for one artist. It never fails
// outright: a run that finds nothing, or cannot reach its sources, returns
// a failed result with an explanation. Failed runs are not cached.
func (s *Server) Index(ctx context.Context, req types.IndexRequest) types.IndexingResult {
	artist := strings.TrimSpace(req.ArtistName)
	log := s.logger.With(slog.String("request_id", uuid.NewString()), slog.String("artist", artist))

	if err := req.Validate(); err != nil {
		log.Info("index rejected", "error", err)
		return types.FailedIndexing(req, err)
	}

	useWeb := req.EnableWebSearch && s.web != nil
	key := acquire.CacheKey("index", artist, req.ArtistID, useWeb)

	res, hit, err := acquire.Cached(ctx, s.base, key, s.cfg.CacheTTL, func(ctx context.Context) (types.IndexingResult, error) {
		return s.run(ctx, req, useWeb, log)
	})
	if err != nil {
		log.Warn("index failed", "error", err)
		return types.FailedIndexing(req, err)
	}

	log.Info("index completed",
		"status", res.Status,
		"pages", res.TotalPages,
		"albums", len(res.AlbumsFound),
		"songs", len(res.SongsFound),
		"confidence", res.Confidence,
		"cache_hit", hit)
	return res.Clone()
}

func (s *Server) run(ctx context.Context, req types.IndexRequest, useWeb bool, log *slog.Logger) (types.IndexingResult, error) {
	artist := strings.TrimSpace(req.ArtistName)

	profiles, searchErr := s.findProfiles(ctx, artist, log)
	if err := ctx.Err(); err != nil {
		return types.IndexingResult{}, err
	}

	lists := make([][]types.ExtractedEntity, 0, len(profiles)+1)
	for _, d := range profiles {
		lists = append(lists, s.extractor.Extract(d))
	}
	usedWeb := false
	if len(profiles) == 0 && useWeb {
		if ents := s.webEntities(ctx, artist, log); len(ents) > 0 {
			lists = append(lists, ents)
			usedWeb = true
		}
	}
	mentions := extract.Merge(lists...)

	exclude := make(map[int]bool)
	markPages(exclude, profiles)

	albums := extract.Top(ofKind(mentions, types.KindAlbum), s.cfg.MaxAlbums)
	albumPages := s.lookupPages(ctx, artist, albums, types.KindAlbum, len(albums), exclude, log)
	markPages(exclude, albumPages)
	albums = extract.Top(albums, len(albums))

	// Album pages contribute their track listings.
	songLists := [][]types.ExtractedEntity{ofKind(mentions, types.KindSong)}
	for _, d := range albumPages {
		songLists = append(songLists, ofKind(s.extractor.Extract(d), types.KindSong))
	}
	songs := extract.Top(extract.Merge(songLists...), s.cfg.MaxSongCandidates)
	songPages := s.lookupPages(ctx, artist, songs, types.KindSong, s.cfg.MaxSongPages, exclude, log)
	songs = extract.Top(songs, len(songs))

	if err := ctx.Err(); err != nil {
		return types.IndexingResult{}, err
	}

	profileFound := len(profiles) > 0
	all := make([]types.ExtractedEntity, 0, len(albums)+len(songs))
	all = append(append(all, albums...), songs...)

	status := extract.Status(profileFound, len(all))
	if status == types.StatusFailed {
		err := fmt.Errorf("%w for %q", ErrNothingFound, artist)
		if searchErr != nil {
			err = fmt.Errorf("%w: %w", err, searchErr)
		}
		return types.IndexingResult{}, err
	}

	confidence := extract.Aggregate(s.cfg.Weights, profileFound, all)
	if usedWeb && s.cfg.WebSearch.Ceiling > 0 {
		confidence = min(confidence, s.cfg.WebSearch.Ceiling)
	}

	return types.IndexingResult{
		ArtistName:     artist,
		ArtistID:       req.ArtistID,
		WikipediaPages: profiles,
		AlbumPages:     albumPages,
		SongPages:      songPages,
		AlbumsFound:    albums,
		SongsFound:     songs,
		TotalPages:     len(profiles) + len(albumPages) + len(songPages),
		Confidence:     confidence,
		Status:         status,
		UsedWebSearch:  usedWeb,
	}, nil
}

// findProfiles tries each profile query variant until enough relevant
// pages are found, then fetches them. A search error is returned only
// when no page was found.
func (s *Server) findProfiles(ctx context.Context, artist string, log *slog.Logger) ([]types.Document, error) {
	seen := make(map[int]bool)
	var (
		hits []SearchHit
		errs []error
	)
	for _, q := range profileQueries(artist) {
		want := s.cfg.MaxProfilePages - len(hits)
		if want <= 0 {
			break
		}
		found, err := s.wiki.SearchUntil(ctx, q, profileSearchLimit, searchPages, want, func(h SearchHit) bool {
			return !seen[h.PageID] && relevantProfile(h, artist)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("profile search failed", "query", q, "error", err)
			errs = append(errs, err)
		}
		for _, h := range found {
			seen[h.PageID] = true
			hits = append(hits, h)
		}
	}

	docs := make([]types.Document, len(hits))
	ok := make([]bool, len(hits))
	var g errgroup.Group
	g.SetLimit(s.cfg.LookupConcurrency)
	for i, h := range hits {
		g.Go(func() error {
			doc, err := s.wiki.Page(ctx, h.PageID, types.ContentProfile)
			if err != nil {
				log.Warn("profile page failed", "page_id", h.PageID, "error", err)
				return err
			}
			docs[i], ok[i] = doc, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	out := make([]types.Document, 0, len(docs))
	for i, d := range docs {
		if ok[i] {
			out = append(out, d)
		}
	}
	if len(out) > 0 {
		return out, nil
	}
	return out, errors.Join(errs...)
}

// lookupPages searches for a dedicated page for each of the first n
// entities, in parallel. A found page corroborates its entity in place;
// misses and errors leave the entity unchanged.
func (s *Server) lookupPages(ctx context.Context, artist string, ents []types.ExtractedEntity, kind types.EntityKind, n int, exclude map[int]bool, log *slog.Logger) []types.Document {
	n = min(n, len(ents))
	found := make([]*types.Document, n)

	var g errgroup.Group
	g.SetLimit(s.cfg.LookupConcurrency)
	for i := range n {
		g.Go(func() error {
			doc, ok, err := s.dedicatedPage(ctx, ents[i].Name, artist, kind, exclude)
			switch {
			case err != nil:
				log.Debug("page lookup failed", "kind", kind, "name", ents[i].Name, "error", err)
			case ok:
				found[i] = &doc
			}
			return nil
		})
	}
	_ = g.Wait()

	docs := []types.Document{}
	seen := make(map[string]bool)
	for i, d := range found {
		if d == nil {
			continue
		}
		extract.Corroborate(&ents[i], *d, s.cfg.CorroborationBoost)
		if !seen[d.ID] {
			seen[d.ID] = true
			docs = append(docs, *d)
		}
	}
	return docs
}

func (s *Server) dedicatedPage(ctx context.Context, name, artist string, kind types.EntityKind, exclude map[int]bool) (types.Document, bool, error) {
	ct := types.ContentAlbum
	if kind == types.KindSong {
		ct = types.ContentSong
	}
	for _, q := range dedicatedQueries(name, artist, kind) {
		hits, err := s.wiki.SearchUntil(ctx, q, dedicatedSearchLimit, 1, 1, func(h SearchHit) bool {
			return !exclude[h.PageID] && relevantDedicated(h, name, artist, kind)
		})
		if err != nil {
			return types.Document{}, false, err
		}
		if len(hits) == 0 {
			continue
		}
		doc, err := s.wiki.Page(ctx, hits[0].PageID, ct)
		if err != nil {
			return types.Document{}, false, err
		}
		return doc, true, nil
	}
	return types.Document{}, false, nil
}

// webEntities runs the web-search fallback and extracts entities from the
// result snippets, capped at the web entity confidence.
func (s *Server) webEntities(ctx context.Context, artist string, log *slog.Logger) []types.ExtractedEntity {
	results, err := s.web.Search(ctx, webQuery(artist))
	if err != nil {
		log.Warn("web search failed", "source", s.web.Name(), "error", err)
		return nil
	}

	lists := make([][]types.ExtractedEntity, 0, len(results))
	for _, r := range results {
		ents := s.extractor.Extract(webDocument(r))
		if limit := s.cfg.WebSearch.EntityCap; limit > 0 {
			for i := range ents {
				ents[i].Confidence = min(ents[i].Confidence, limit)
			}
		}
		lists = append(lists, ents)
	}
	ents := extract.Merge(lists...)
	log.Info("web search fallback", "results", len(results), "entities", len(ents))
	return ents
}

func ofKind(ents []types.ExtractedEntity, kind types.EntityKind) []types.ExtractedEntity {
	out := []types.ExtractedEntity{}
	for _, e := range ents {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func markPages(set map[int]bool, docs []types.Document) {
	for _, d := range docs {
		if rest, ok := strings.CutPrefix(d.ID, "wikipedia:"); ok {
			if id, err := strconv.Atoi(rest); err == nil {
				set[id] = true
			}
		}
	}
}
