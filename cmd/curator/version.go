// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/music-curator/internal/index"
	"github.com/pdiddy/music-curator/internal/search"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of curator",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("curator %s (artist-search %s, artist-index %s)\n", version, search.Version, index.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
