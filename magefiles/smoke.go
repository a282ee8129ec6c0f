//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// smokeArtist is the artist used by the smoke targets; override with
// CURATOR_SMOKE_ARTIST.
func smokeArtist() string {
	if a := os.Getenv("CURATOR_SMOKE_ARTIST"); a != "" {
		return a
	}
	return "David Bowie"
}

// SearchSmoke builds the CLI and runs a live search against Wikidata.
func SearchSmoke() error {
	mg.Deps(Build)
	if err := sh.RunV(binPath, "search", smokeArtist(), "--limit", "5"); err != nil {
		return err
	}
	return sh.RunV(binPath, "search", "Devid Bowee", "--limit", "3")
}

// IndexSmoke builds the CLI and indexes one artist against Wikipedia.
func IndexSmoke() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "index", smokeArtist())
}
