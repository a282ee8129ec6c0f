// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/music-curator/internal/index"
	"github.com/pdiddy/music-curator/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index <artist name>",
	Short: "Index an artist's reference pages, albums, and songs",
	Long: `Index finds an artist's Wikipedia profile, extracts the albums and songs
it mentions, and looks up their dedicated pages. The result reports the
pages found, the extracted entities with per-entity confidence, and an
overall status: completed (profile and entities), partial (one of the
two), or failed.

With --web-search and configured google-cse-api-key and
google-cse-engine-id secrets, an artist with no profile page falls back to
general web search at reduced confidence.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("artist-id", "", "external artist identifier (Wikidata Q-id)")
	indexCmd.Flags().Bool("web-search", false, "allow the web-search fallback")
	indexCmd.Flags().Bool("json", false, "output the result as JSON")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	artistID, _ := cmd.Flags().GetString("artist-id")
	web, _ := cmd.Flags().GetBool("web-search")

	req := types.IndexRequest{
		ArtistName:      strings.Join(args, " "),
		ArtistID:        artistID,
		EnableWebSearch: web,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if web && !cfg.Index.WebSearch.Enabled() {
		logger.Warn("web search requested but no credentials are configured")
	}

	srv, err := index.New(cfg.Index, index.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	defer srv.Close()

	res := srv.Index(cmd.Context(), req)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := index.FormatJSON(res, os.Stdout); err != nil {
			return err
		}
	} else {
		index.FormatTable(res, os.Stdout)
	}

	if res.Status == types.StatusFailed {
		return errors.New(res.Error)
	}
	return nil
}
