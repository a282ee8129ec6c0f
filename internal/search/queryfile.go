// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/music-curator/pkg/types"
)

// QueryFile is the on-disk representation of an artist search and its
// response. A saved search can be reloaded and shown, or replayed, without
// re-typing the query.
type QueryFile struct {
	Query    QueryParams          `yaml:"query"`
	Response types.SearchResponse `yaml:"response"`
	Summary  QuerySummary         `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Text    string `yaml:"text"`
	Genre   string `yaml:"genre,omitempty"`
	Era     string `yaml:"era,omitempty"`
	Country string `yaml:"country,omitempty"`
	Limit   int    `yaml:"limit,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Returned  int       `yaml:"returned"`
	Total     int       `yaml:"total"`
	Error     string    `yaml:"error,omitempty"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves a query and its response to a YAML file.
func WriteQueryFile(path string, q types.Query, resp types.SearchResponse) error {
	qf := QueryFile{
		Query: QueryParams{
			Text:    q.Term(),
			Genre:   q.Filters.Genre,
			Era:     q.Filters.Era,
			Country: q.Filters.Country,
			Limit:   q.Limit,
		},
		Response: resp,
		Summary: QuerySummary{
			Returned:  len(resp.Results),
			Total:     resp.TotalResults,
			Error:     resp.Error,
			Timestamp: time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// ToQuery converts stored QueryParams back into a Query.
func (p QueryParams) ToQuery() (types.Query, error) {
	q := types.Query{
		Text: p.Text,
		Filters: types.Filters{
			Genre:   p.Genre,
			Era:     p.Era,
			Country: p.Country,
		},
		Limit: p.Limit,
	}
	if err := q.Validate(); err != nil {
		return q, fmt.Errorf("invalid saved query: %w", err)
	}
	return q, nil
}
