// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract derives album and song candidates from retrieved
// documents. Each mention is scored by how many independent cues
// corroborate it: list or table structure, release-citation patterns, title
// formatting, and nearness to a discography-style heading.
package extract

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/pdiddy/music-curator/internal/textutil"
	"github.com/pdiddy/music-curator/pkg/types"
)

// Cue names recorded on extracted entities.
const (
	CueStructural = "structural"
	CueYear       = "year"
	CueMarker     = "marker"
	CueTitle      = "title"
	CueProximity  = "proximity"
	CuePage       = "page"
)

const (
	floorConfidence = 0.3
	cueStep         = 0.3

	defaultMaxNameRunes = 80
	defaultMaxNameWords = 10
)

var (
	parenYearRe = regexp.MustCompile(`\([^()]*?\b((?:19|20)\d{2})\b[^()]*\)`)
	bareYearRe  = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	markerRe    = regexp.MustCompile(`(?i)\((studio album|live album|compilation album|compilation|album|ep|song|single)\)`)
	italicRe    = regexp.MustCompile(`_([^_]+)_`)
	quotedRe    = regexp.MustCompile(`["“]([^"“”]{1,120})["”]`)
	positionRe  = regexp.MustCompile(`^(\d{1,3})\.?$`)
	orderedRe   = regexp.MustCompile(`^(\d{1,3})\.\s+`)
	durationRe  = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	footnoteRe  = regexp.MustCompile(`\[[^\]]*\]`)
	trailParen  = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

	// citationRe matches an unformatted "Title Words (1977)" release
	// citation, as found in web snippets.
	citationRe = regexp.MustCompile(`([A-Z0-9][\w'’&!?.-]*(?:\s+(?:[A-Z0-9][\w'’&!?.-]*|of|the|and|to|a|in|on|for|from)){0,6})\s+\(((?:19|20)\d{2})\)`)
)

// Section vocabulary. Song terms are checked first so "Singles" under
// "Discography" resolves to songs.
var (
	songVocab     = []string{"singles", "single", "songs", "song", "track listing", "tracklist", "track list"}
	albumVocab    = []string{"discography", "albums", "album", "studio albums", "live albums", "compilation albums", "soundtrack albums", "eps", "extended plays"}
	excludedVocab = []string{"filmography", "films", "film", "bibliography", "books", "awards", "references", "notes", "external links", "see also", "further reading", "tours", "television", "personnel", "charts", "certifications"}
)

// stopNames are column headings and labels that look like titles.
var stopNames = map[string]bool{
	"title": true, "no": true, "length": true, "year": true, "album": true,
	"album details": true, "details": true, "peak chart positions": true,
	"certifications": true, "writer s": true, "writers": true, "label": true,
	"total length": true, "notes": true, "single": true, "song": true,
}

// Extractor finds album and song mentions in documents.
type Extractor struct {
	maxRunes int
	maxWords int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithNameLimits bounds accepted names. Longer candidates are almost
// always sentence fragments.
func WithNameLimits(maxRunes, maxWords int) Option {
	return func(e *Extractor) {
		if maxRunes > 0 {
			e.maxRunes = maxRunes
		}
		if maxWords > 0 {
			e.maxWords = maxWords
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{maxRunes: defaultMaxNameRunes, maxWords: defaultMaxNameWords}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CueConfidence maps a cue count to an initial confidence: 0.3 for a single
// cue, 0.3 more per additional cue, capped at 1.
func CueConfidence(cues int) float64 {
	if cues <= 0 {
		return 0
	}
	return min(1.0, floorConfidence+cueStep*float64(cues-1))
}

// section is a run of body lines under a heading path.
type section struct {
	headings []string
	lines    []string
}

type heading struct {
	level int
	title string
}

// chunkByHeadings splits line text into sections. Headings are
// "== Title ==" or "## Title"; the heading path of each section keeps the
// enclosing higher-level headings.
func chunkByHeadings(content string) []section {
	var (
		sections []section
		path     []heading
		body     []string
	)

	flush := func() {
		if len(body) == 0 {
			return
		}
		titles := make([]string, len(path))
		for i, h := range path {
			titles[i] = h.title
		}
		sections = append(sections, section{headings: titles, lines: body})
		body = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if level, title, ok := parseHeading(trimmed); ok {
			flush()
			for len(path) > 0 && path[len(path)-1].level >= level {
				path = path[:len(path)-1]
			}
			path = append(path, heading{level: level, title: title})
			continue
		}
		body = append(body, trimmed)
	}
	flush()
	return sections
}

func parseHeading(line string) (int, string, bool) {
	switch {
	case strings.HasPrefix(line, "=="):
		level := len(line) - len(strings.TrimLeft(line, "="))
		title := strings.TrimSpace(strings.Trim(line, "="))
		if title == "" || !strings.HasSuffix(line, "==") {
			return 0, "", false
		}
		return level, title, true
	case strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "### ") || strings.HasPrefix(line, "#### "):
		level := len(line) - len(strings.TrimLeft(line, "#"))
		return level, strings.TrimSpace(strings.TrimLeft(line, "#")), true
	}
	return 0, "", false
}

// sectionContext summarizes what the heading path says about its lines.
type sectionContext struct {
	music    bool
	excluded bool
	kind     types.EntityKind
}

func contextFor(headings []string) sectionContext {
	var ctx sectionContext
	for i := len(headings) - 1; i >= 0; i-- {
		h := headings[i]
		if textutil.ContainsWord(h, excludedVocab...) {
			if !ctx.music {
				ctx.excluded = true
			}
			return ctx
		}
		switch {
		case textutil.ContainsWord(h, songVocab...):
			ctx.music = true
			if ctx.kind == "" {
				ctx.kind = types.KindSong
			}
		case textutil.ContainsWord(h, albumVocab...):
			ctx.music = true
			if ctx.kind == "" {
				ctx.kind = types.KindAlbum
			}
		}
	}
	return ctx
}

// mention is one raw sighting of a candidate name.
type mention struct {
	name     string
	kind     types.EntityKind
	position int
	year     int
	cues     []string
}

// Extract returns the deduplicated album and song mentions in doc, each
// scored by its corroborating cues.
func (e *Extractor) Extract(doc types.Document) []types.ExtractedEntity {
	var out []types.ExtractedEntity
	for _, sec := range chunkByHeadings(doc.Text) {
		ctx := contextFor(sec.headings)
		if ctx.excluded {
			continue
		}
		for _, line := range sec.lines {
			for _, m := range e.lineMentions(line, ctx, doc.ContentType) {
				out = append(out, types.ExtractedEntity{
					Name:       m.name,
					Kind:       m.kind,
					Position:   m.position,
					Year:       m.year,
					Sources:    []string{doc.ID},
					Cues:       m.cues,
					Confidence: CueConfidence(len(m.cues)),
				})
			}
		}
	}
	return Merge(out)
}

func (e *Extractor) lineMentions(line string, ctx sectionContext, ct types.ContentType) []mention {
	switch {
	case strings.HasPrefix(line, "* "):
		if m, ok := e.listMention(strings.TrimPrefix(line, "* "), ctx, ct); ok {
			return []mention{m}
		}
		return nil
	case strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|"):
		if m, ok := e.rowMention(line, ctx, ct); ok {
			return []mention{m}
		}
		return nil
	default:
		return e.proseMentions(line, ctx, ct)
	}
}

func (e *Extractor) listMention(body string, ctx sectionContext, ct types.ContentType) (mention, bool) {
	m := mention{cues: []string{CueStructural}}
	if loc := orderedRe.FindStringSubmatchIndex(body); loc != nil {
		m.position = atoi(body[loc[2]:loc[3]])
		body = body[loc[1]:]
	}

	raw, format := titleOf(body)
	marker := markerRe.FindStringSubmatch(body)
	if y := parenYearRe.FindStringSubmatch(body); y != nil {
		m.year = atoi(y[1])
	}

	// Plain list items outside music sections carry no name boundary.
	if !ctx.music && marker == nil && !(format != "" && m.year > 0) {
		return mention{}, false
	}
	return e.finish(m, raw, format, marker, ctx, ct)
}

func (e *Extractor) rowMention(line string, ctx sectionContext, ct types.ContentType) (mention, bool) {
	cells := strings.Split(strings.Trim(line, "|"), "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}

	m := mention{cues: []string{CueStructural}}
	var raw, format string
	posIdx := -1
	for i, c := range cells {
		if pm := positionRe.FindStringSubmatch(c); pm != nil && posIdx < 0 && raw == "" {
			posIdx = i
			m.position = atoi(pm[1])
			continue
		}
		if t, f := formattedTitle(c); f != "" {
			raw, format = t, f
			break
		}
	}
	if raw == "" && posIdx >= 0 {
		for _, c := range cells[posIdx+1:] {
			if c != "" && !durationRe.MatchString(c) {
				raw = c
				break
			}
		}
	}
	if raw == "" {
		return mention{}, false
	}
	if !ctx.music && format == "" {
		return mention{}, false
	}

	joined := strings.Join(cells, " ")
	if y := bareYearRe.FindStringSubmatch(joined); y != nil {
		m.year = atoi(y[1])
	}
	return e.finish(m, raw, format, markerRe.FindStringSubmatch(joined), ctx, ct)
}

func (e *Extractor) proseMentions(line string, ctx sectionContext, ct types.ContentType) []mention {
	var out []mention
	collect := func(re *regexp.Regexp, format string) {
		for _, loc := range re.FindAllStringSubmatchIndex(line, -1) {
			raw := line[loc[2]:loc[3]]
			after := strings.TrimLeft(line[loc[1]:], " ,")
			m := mention{}
			var marker []string
			if mm := markerRe.FindStringSubmatchIndex(after); mm != nil && mm[0] == 0 {
				marker = []string{after[mm[0]:mm[1]], after[mm[2]:mm[3]]}
			}
			if ym := parenYearRe.FindStringSubmatchIndex(after); ym != nil && ym[0] == 0 {
				m.year = atoi(after[ym[2]:ym[3]])
			}
			if mn, ok := e.finish(m, raw, format, marker, ctx, ct); ok {
				out = append(out, mn)
			}
		}
	}
	collect(italicRe, "italic")
	collect(quotedRe, "quoted")

	if ct == types.ContentWeb {
		for _, sm := range citationRe.FindAllStringSubmatch(line, -1) {
			if mn, ok := e.finish(mention{year: atoi(sm[2])}, sm[1], "", nil, ctx, ct); ok {
				out = append(out, mn)
			}
		}
	}
	return out
}

// finish applies the remaining cues, resolves the kind, and validates the
// name.
func (e *Extractor) finish(m mention, raw, format string, marker []string, ctx sectionContext, ct types.ContentType) (mention, bool) {
	name := cleanName(raw)
	if !e.validName(name) {
		return mention{}, false
	}
	m.name = name

	if format != "" {
		m.cues = append(m.cues, CueTitle)
	}
	if m.year > 0 {
		m.cues = append(m.cues, CueYear)
	}
	if marker != nil {
		m.cues = append(m.cues, CueMarker)
	}
	if ctx.music {
		m.cues = append(m.cues, CueProximity)
	}

	switch {
	case marker != nil:
		m.kind = markerKind(marker[1])
	case ctx.kind != "":
		m.kind = ctx.kind
	case format == "italic":
		m.kind = types.KindAlbum
	case format == "quoted":
		m.kind = types.KindSong
	case ct == types.ContentAlbum || ct == types.ContentSong:
		m.kind = types.KindSong
	default:
		m.kind = types.KindAlbum
	}
	return m, true
}

func markerKind(marker string) types.EntityKind {
	switch strings.ToLower(marker) {
	case "song", "single":
		return types.KindSong
	default:
		return types.KindAlbum
	}
}

// titleOf picks the title out of a list item: a formatted run if there is
// one, otherwise the text before the first separator.
func titleOf(body string) (string, string) {
	if t, f := formattedTitle(body); f != "" {
		return t, f
	}
	s := body
	for _, sep := range []string{" (", " – ", " — ", " - ", ": ", ", "} {
		if i := strings.Index(s, sep); i > 0 {
			s = s[:i]
		}
	}
	return s, ""
}

func formattedTitle(s string) (string, string) {
	im := italicRe.FindStringSubmatchIndex(s)
	qm := quotedRe.FindStringSubmatchIndex(s)
	switch {
	case im != nil && (qm == nil || im[0] <= qm[0]):
		return s[im[2]:im[3]], "italic"
	case qm != nil:
		return s[qm[2]:qm[3]], "quoted"
	}
	return "", ""
}

// cleanName strips formatting, citations, trailing parentheticals, and
// separators from a raw title.
func cleanName(raw string) string {
	s := footnoteRe.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "_", "")
	for {
		next := trailParen.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	for _, sep := range []string{" – ", " — ", " - "} {
		if i := strings.Index(s, sep); i > 0 {
			s = s[:i]
		}
	}
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`"“”‘’',.;:`, r)
	})
	return textutil.CollapseSpace(s)
}

func (e *Extractor) validName(name string) bool {
	if name == "" {
		return false
	}
	if n := len([]rune(name)); n > e.maxRunes {
		return false
	}
	if len(strings.Fields(name)) > e.maxWords {
		return false
	}
	if durationRe.MatchString(name) || positionRe.MatchString(name) {
		return false
	}
	norm := textutil.Normalize(name)
	if norm == "" || stopNames[norm] {
		return false
	}
	return true
}

// Merge deduplicates entities by kind and normalized name, keeping the
// highest confidence and the union of sources and cues. The first
// occurrence fixes the order.
func Merge(lists ...[]types.ExtractedEntity) []types.ExtractedEntity {
	index := make(map[string]int)
	out := []types.ExtractedEntity{}
	for _, list := range lists {
		for _, ent := range list {
			key := string(ent.Kind) + "\x00" + textutil.Normalize(ent.Name)
			idx, ok := index[key]
			if !ok {
				index[key] = len(out)
				ent.Sources = slices.Clone(ent.Sources)
				ent.Cues = slices.Clone(ent.Cues)
				out = append(out, ent)
				continue
			}
			dst := &out[idx]
			if ent.Confidence > dst.Confidence {
				dst.Confidence = ent.Confidence
			}
			dst.Sources = union(dst.Sources, ent.Sources)
			dst.Cues = union(dst.Cues, ent.Cues)
			if dst.Year == 0 {
				dst.Year = ent.Year
			}
			if dst.Position == 0 {
				dst.Position = ent.Position
			}
			if dst.PageID == "" {
				dst.PageID = ent.PageID
			}
		}
	}
	return out
}

func union(a, b []string) []string {
	for _, s := range b {
		if !slices.Contains(a, s) {
			a = append(a, s)
		}
	}
	return a
}

// Corroborate records that a dedicated document exists for ent, raising
// its confidence by boost (capped at 1).
func Corroborate(ent *types.ExtractedEntity, doc types.Document, boost float64) {
	ent.Confidence = min(1.0, ent.Confidence+boost)
	ent.PageID = doc.ID
	ent.Sources = union(ent.Sources, []string{doc.ID})
	ent.Cues = union(ent.Cues, []string{CuePage})
}

// Top returns at most n entities, highest confidence first, ties in
// original order.
func Top(ents []types.ExtractedEntity, n int) []types.ExtractedEntity {
	out := slices.Clone(ents)
	slices.SortStableFunc(out, func(a, b types.ExtractedEntity) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
