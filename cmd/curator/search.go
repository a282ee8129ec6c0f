// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/music-curator/internal/search"
	"github.com/pdiddy/music-curator/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [artist name]",
	Short: "Find musical artists by name",
	Long: `Search resolves an artist name against Wikidata. Exact matches rank
first, then close misspellings, then names that contain the query. Results
carry a confidence in [0,1] and are optionally narrowed by genre, era
(e.g. 1970s, 1977, 1965-1980), and country.

A search can be saved to a YAML file with --save and re-run later with
--load.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("genre", "", "filter by genre (e.g. \"glam rock\")")
	searchCmd.Flags().String("era", "", "filter by active era: 1970s, 1977, or 1965-1980")
	searchCmd.Flags().String("country", "", "filter by country")
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "save the query and its results to a YAML file")
	searchCmd.Flags().String("load", "", "re-run a query saved with --save")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, err := searchQuery(cmd, args)
	if err != nil {
		return err
	}

	srv, err := search.New(cfg.Search, search.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	defer srv.Close()

	resp := srv.Search(cmd.Context(), q)

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteQueryFile(path, q, resp); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved query to %s\n", path)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := search.FormatJSON(resp, os.Stdout); err != nil {
			return err
		}
	} else {
		search.FormatTable(resp, os.Stdout)
	}

	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

// searchQuery builds the query from a saved file or from arguments and flags.
func searchQuery(cmd *cobra.Command, args []string) (types.Query, error) {
	if path, _ := cmd.Flags().GetString("load"); path != "" {
		if len(args) > 0 {
			return types.Query{}, fmt.Errorf("--load cannot be combined with a search term")
		}
		qf, err := search.ReadQueryFile(path)
		if err != nil {
			return types.Query{}, err
		}
		return qf.Query.ToQuery()
	}

	genre, _ := cmd.Flags().GetString("genre")
	era, _ := cmd.Flags().GetString("era")
	country, _ := cmd.Flags().GetString("country")
	limit, _ := cmd.Flags().GetInt("limit")

	// Blank text and bad eras are reported by the server with suggestions.
	return types.Query{
		Text: strings.Join(args, " "),
		Filters: types.Filters{
			Genre:   genre,
			Era:     era,
			Country: country,
		},
		Limit: limit,
	}, nil
}
