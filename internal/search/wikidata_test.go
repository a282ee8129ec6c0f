// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/music-curator/internal/acquire"
	"github.com/pdiddy/music-curator/pkg/types"
)

const bowieBindings = `{
  "head": {"vars": ["item", "itemLabel"]},
  "results": {"bindings": [
    {
      "item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q5383"},
      "itemLabel": {"type": "literal", "value": "David Bowie"},
      "itemDescription": {"type": "literal", "value": "English singer-songwriter and actor (1947–2016)"},
      "country": {"type": "literal", "value": "United Kingdom"},
      "image": {"type": "uri", "value": "http://commons.wikimedia.org/wiki/Special:FilePath/David-Bowie.jpg"},
      "birthYear": {"type": "literal", "value": "1947"},
      "deathYear": {"type": "literal", "value": "2016"},
      "musicbrainz": {"type": "literal", "value": "5441c29d-3602-4898-b1a1-b77fa23b8e50"},
      "aliases": {"type": "literal", "value": "David Robert Jones|Ziggy Stardust"}
    },
    {
      "item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q99999999"},
      "itemLabel": {"type": "literal", "value": "Q99999999"}
    },
    {
      "item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q2831"},
      "itemLabel": {"type": "literal", "value": "Bowie Tribute"}
    }
  ]}
}`

const emptyBindings = `{"results": {"bindings": []}}`

func testSourceConfig() types.SourceConfig {
	cfg := types.DefaultSourceConfig()
	cfg.Timeout = 2 * time.Second
	cfg.OperationTimeout = 5 * time.Second
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	return cfg
}

func newTestWikidata(t *testing.T, handler http.HandlerFunc) *WikidataSource {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	base, err := acquire.Open("wikidata", testSourceConfig(), acquire.WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })
	return NewWikidataSource(base, ts.URL, "en")
}

func TestWikidata_Candidates(t *testing.T) {
	src := newTestWikidata(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		q := r.URL.Query().Get("query")
		assert.Contains(t, q, `mwapi:search "David Bowie"`)
		assert.Contains(t, q, `wikibase:api "EntitySearch"`)
		w.Write([]byte(bowieBindings))
	})

	cands, err := src.Candidates(context.Background(), types.Query{Text: "David Bowie"}, 50)
	require.NoError(t, err)
	require.Len(t, cands, 2, "unlabelled entities are skipped")

	b := cands[0]
	assert.Equal(t, "Q5383", b.ID)
	assert.Equal(t, "David Bowie", b.Name)
	assert.Equal(t, []string{"David Robert Jones", "Ziggy Stardust"}, b.Aliases)
	assert.Equal(t, "United Kingdom", b.Country)
	assert.Equal(t, 1947, b.BirthYear)
	assert.Equal(t, 2016, b.DeathYear)
	assert.Equal(t, "5441c29d-3602-4898-b1a1-b77fa23b8e50", b.CrossRefs["musicbrainz"])
	assert.Equal(t, 0, b.Rank)
	assert.Equal(t, 1, cands[1].Rank)
}

func TestWikidata_RelaxesEmptyMultiWordQuery(t *testing.T) {
	var calls int32
	src := newTestWikidata(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		q := r.URL.Query().Get("query")
		if n == 1 {
			assert.Contains(t, q, `mwapi:search "Devid Bowiee"`)
			w.Write([]byte(emptyBindings))
			return
		}
		assert.Contains(t, q, `mwapi:search "Bowiee"`)
		w.Write([]byte(bowieBindings))
	})

	cands, err := src.Candidates(context.Background(), types.Query{Text: "Devid Bowiee"}, 50)
	require.NoError(t, err)
	assert.Len(t, cands, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWikidata_FiltersRendered(t *testing.T) {
	src := newTestWikidata(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		assert.Contains(t, q, `CONTAINS(LCASE(?genreName), LCASE("glam rock"))`)
		assert.Contains(t, q, `LCASE(?ctryName) = LCASE("United Kingdom")`)
		assert.Contains(t, q, "<= 1979")
		assert.Contains(t, q, "< 1970")
		w.Write([]byte(bowieBindings))
	})

	_, err := src.Candidates(context.Background(), types.Query{
		Text:    "David Bowie",
		Filters: types.Filters{Genre: "glam rock", Country: "United Kingdom", Era: "1970s"},
	}, 50)
	require.NoError(t, err)
}

func TestWikidata_InvalidEraNeverCallsNetwork(t *testing.T) {
	var calls int32
	src := newTestWikidata(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(emptyBindings))
	})

	_, err := src.Candidates(context.Background(), types.Query{
		Text:    "David Bowie",
		Filters: types.Filters{Era: "the seventies"},
	}, 50)
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestWikidata_BadRequestIsPermanent(t *testing.T) {
	var calls int32
	src := newTestWikidata(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "MalformedQueryException", http.StatusBadRequest)
	})

	_, err := src.Candidates(context.Background(), types.Query{Text: "David Bowie"}, 50)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSparqlEscape(t *testing.T) {
	got := sparqlEscape(`Guns "N" Roses\` + "\n")
	assert.Equal(t, `Guns \"N\" Roses\\\n`, got)
	assert.False(t, strings.Contains(buildEntityQuery(`x" } DROP {`, "en", types.Filters{}, eraFilter{}, 10), `"x" }`))
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1947", 1947},
		{"1947-01-08T00:00:00Z", 1947},
		{"1947.0", 1947},
		{"-0500", -500},
		{"", 0},
		{"unknown", 0},
	}
	for _, tt := range tests {
		if got := extractYear(tt.in); got != tt.want {
			t.Errorf("extractYear(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
