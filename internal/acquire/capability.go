// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"

	"github.com/pdiddy/music-curator/pkg/types"
)

// Info describes a server to callers that discover capabilities at runtime.
type Info struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
}

// EntitySearcher finds and ranks candidate entities for a free-text query.
// Search never returns an error; failures are reported in the response.
type EntitySearcher interface {
	Search(ctx context.Context, q types.Query) types.SearchResponse
	Info() Info
	Close() error
}

// ContentIndexer gathers documents about an artist and extracts the albums
// and songs they mention. Failures are reported in the result.
type ContentIndexer interface {
	Index(ctx context.Context, req types.IndexRequest) types.IndexingResult
	Info() Info
	Close() error
}
