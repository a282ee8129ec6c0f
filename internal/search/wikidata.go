// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/music-curator/internal/acquire"
	"github.com/pdiddy/music-curator/pkg/types"
)

// Source produces raw candidates for a query. Each external catalogue
// implements this interface.
type Source interface {
	Name() string
	Candidates(ctx context.Context, q types.Query, pool int) ([]types.CandidateRecord, error)
}

// WikidataSource finds musicians and musical groups through the Wikidata
// SPARQL endpoint, using the MediaWiki entity search service for label
// matching and SPARQL filters for genre, country, and era.
type WikidataSource struct {
	server   *acquire.Server
	endpoint string
	language string
}

// NewWikidataSource creates a source that issues requests through server.
func NewWikidataSource(server *acquire.Server, endpoint, language string) *WikidataSource {
	if language == "" {
		language = "en"
	}
	return &WikidataSource{server: server, endpoint: endpoint, language: language}
}

// Name returns the source identifier.
func (w *WikidataSource) Name() string { return "wikidata" }

// Candidates runs the entity search for the full query. When that finds
// nothing and the query has several words, it retries once with the
// longest word so misspelled multi-word names still produce candidates.
func (w *WikidataSource) Candidates(ctx context.Context, q types.Query, pool int) ([]types.CandidateRecord, error) {
	from, to, hasEra, err := q.Filters.EraRange()
	if err != nil {
		return nil, err
	}
	era := eraFilter{from: from, to: to, set: hasEra}

	term := q.Term()
	cands, err := w.query(ctx, term, q.Filters, era, pool)
	if err != nil {
		return nil, err
	}
	if len(cands) > 0 {
		return cands, nil
	}

	relaxed := longestWord(term)
	if relaxed == "" || relaxed == term {
		return cands, nil
	}
	w.server.Logger().Debug("no candidates, relaxing query", "term", term, "relaxed", relaxed)
	return w.query(ctx, relaxed, q.Filters, era, pool)
}

func (w *WikidataSource) query(ctx context.Context, term string, f types.Filters, era eraFilter, pool int) ([]types.CandidateRecord, error) {
	sparql := buildEntityQuery(term, w.language, f, era, pool)
	params := url.Values{
		"query":  {sparql},
		"format": {"json"},
	}
	header := http.Header{"Accept": {"application/sparql-results+json"}}

	var resp sparqlResponse
	if err := w.server.GetJSON(ctx, w.endpoint+"?"+params.Encode(), header, &resp); err != nil {
		return nil, fmt.Errorf("wikidata entity search: %w", err)
	}
	return mapCandidates(resp.Results.Bindings), nil
}

type eraFilter struct {
	from, to int
	set      bool
}

// buildEntityQuery renders the SPARQL for one entity search. The result
// has one row per entity in search order, with aliases concatenated.
func buildEntityQuery(term, lang string, f types.Filters, era eraFilter, pool int) string {
	var filters strings.Builder
	if g := strings.TrimSpace(f.Genre); g != "" {
		fmt.Fprintf(&filters, `
  FILTER EXISTS {
    ?item wdt:P136 ?genre . ?genre rdfs:label ?genreName .
    FILTER(LANG(?genreName) = "%s" && CONTAINS(LCASE(?genreName), LCASE("%s")))
  }`, lang, sparqlEscape(g))
	}
	if c := strings.TrimSpace(f.Country); c != "" {
		fmt.Fprintf(&filters, `
  FILTER EXISTS {
    ?item wdt:P27|wdt:P495 ?ctry . ?ctry rdfs:label ?ctryName .
    FILTER(LANG(?ctryName) = "%s" && LCASE(?ctryName) = LCASE("%s"))
  }`, lang, sparqlEscape(c))
	}
	if era.set {
		// Active during the era: started by its end and not finished before its start.
		fmt.Fprintf(&filters, `
  FILTER EXISTS { ?item wdt:P569|wdt:P571|wdt:P2031 ?eraStart . FILTER(YEAR(?eraStart) <= %d) }
  FILTER NOT EXISTS { ?item wdt:P570|wdt:P576|wdt:P2032 ?eraEnd . FILTER(YEAR(?eraEnd) < %d) }`,
			era.to, era.from)
	}

	return fmt.Sprintf(`SELECT ?item ?itemLabel ?itemDescription ?ordinal
  (SAMPLE(?countryName) AS ?country) (SAMPLE(?img) AS ?image)
  (MIN(?bornYear) AS ?birthYear) (MIN(?diedYear) AS ?deathYear)
  (SAMPLE(?mb) AS ?musicbrainz)
  (GROUP_CONCAT(DISTINCT ?alias; separator="|") AS ?aliases)
WHERE {
  SERVICE wikibase:mwapi {
    bd:serviceParam wikibase:endpoint "www.wikidata.org" ;
                    wikibase:api "EntitySearch" ;
                    mwapi:search "%s" ;
                    mwapi:language "%s" ;
                    mwapi:limit "%d" .
    ?item wikibase:apiOutputItem mwapi:item .
    ?ordinal wikibase:apiOrdinal true .
  }
  FILTER EXISTS {
    { ?item wdt:P106/wdt:P279? wd:Q639669 } UNION { ?item wdt:P31/wdt:P279? wd:Q215380 }
  }%s
  OPTIONAL { ?item wdt:P27|wdt:P495 ?ctryItem . ?ctryItem rdfs:label ?countryName . FILTER(LANG(?countryName) = "%s") }
  OPTIONAL { ?item wdt:P18 ?img . }
  OPTIONAL { ?item wdt:P569|wdt:P571 ?born . BIND(YEAR(?born) AS ?bornYear) }
  OPTIONAL { ?item wdt:P570|wdt:P576 ?died . BIND(YEAR(?died) AS ?diedYear) }
  OPTIONAL { ?item wdt:P434 ?mb . }
  OPTIONAL { ?item skos:altLabel ?alias . FILTER(LANG(?alias) = "%s") }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "%s" . }
}
GROUP BY ?item ?itemLabel ?itemDescription ?ordinal
ORDER BY ?ordinal
LIMIT %d`,
		sparqlEscape(term), lang, pool, filters.String(), lang, lang, lang, pool)
}

// sparqlEscape makes s safe inside a double-quoted SPARQL literal.
func sparqlEscape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return r.Replace(s)
}

func longestWord(s string) string {
	var best string
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) > len([]rune(best)) {
			best = w
		}
	}
	return best
}

// SPARQL JSON results format.
type sparqlResponse struct {
	Results struct {
		Bindings []sparqlBinding `json:"bindings"`
	} `json:"results"`
}

type sparqlBinding struct {
	Item        sparqlValue `json:"item"`
	Label       sparqlValue `json:"itemLabel"`
	Description sparqlValue `json:"itemDescription"`
	Country     sparqlValue `json:"country"`
	Image       sparqlValue `json:"image"`
	BirthYear   sparqlValue `json:"birthYear"`
	DeathYear   sparqlValue `json:"deathYear"`
	MusicBrainz sparqlValue `json:"musicbrainz"`
	Aliases     sparqlValue `json:"aliases"`
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func mapCandidates(bindings []sparqlBinding) []types.CandidateRecord {
	out := make([]types.CandidateRecord, 0, len(bindings))
	for _, b := range bindings {
		id := extractQID(b.Item.Value)
		if id == "" {
			continue
		}
		name := b.Label.Value
		// The label service falls back to the Q-id when no label exists.
		if name == "" || name == id {
			continue
		}
		c := types.CandidateRecord{
			ID:          id,
			Name:        name,
			Description: b.Description.Value,
			Country:     b.Country.Value,
			ImageURL:    b.Image.Value,
			BirthYear:   extractYear(b.BirthYear.Value),
			DeathYear:   extractYear(b.DeathYear.Value),
			Rank:        len(out),
		}
		if b.Aliases.Value != "" {
			for _, a := range strings.Split(b.Aliases.Value, "|") {
				if a = strings.TrimSpace(a); a != "" && !slices.Contains(c.Aliases, a) {
					c.Aliases = append(c.Aliases, a)
				}
			}
		}
		c.CrossRefs = map[string]string{"wikidata": id}
		if b.MusicBrainz.Value != "" {
			c.CrossRefs["musicbrainz"] = b.MusicBrainz.Value
		}
		out = append(out, c)
	}
	return out
}

// extractQID extracts the Q-item ID from a full Wikidata URI.
// e.g. "http://www.wikidata.org/entity/Q5383" -> "Q5383"
func extractQID(uri string) string {
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

// extractYear parses a year from "1947", "1947-01-08T00:00:00Z", or a
// decimal literal such as "1947.0". Unparseable values yield 0.
func extractYear(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	neg := strings.HasPrefix(v, "-")
	v = strings.TrimPrefix(v, "-")
	if idx := strings.IndexAny(v, "-."); idx > 0 {
		v = v[:idx]
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	if neg {
		return -y
	}
	return y
}
