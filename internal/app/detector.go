package app

import (
	"path/filepath"

	"github.com/quantmind-br/jsonbundler/internal/utils"
)

// ListingCandidates are the file names probed when no listing is configured,
// in order of preference
var ListingCandidates = []string{
	"environments.json",
	"environments.yaml",
	"environments.yml",
	"bundles.json",
	"bundles.yaml",
}

// DetectListing returns the listing file to use. An explicit path that
// exists wins; otherwise the first candidate present in dir. Returns "" when
// nothing is found.
func DetectListing(explicit, dir string) string {
	if explicit != "" && utils.FileExists(explicit) {
		return explicit
	}
	for _, name := range ListingCandidates {
		path := filepath.Join(dir, name)
		if utils.FileExists(path) {
			return path
		}
	}
	return ""
}
