package domain

import (
	"errors"
	"time"
)

// ErrNoBuild indicates an environment has never been built
var ErrNoBuild = errors.New("no build recorded")

// BuildStatus is the outcome of one environment build
type BuildStatus string

// Build outcomes
const (
	BuildWritten   BuildStatus = "written"
	BuildUnchanged BuildStatus = "unchanged"
	BuildDryRun    BuildStatus = "dry-run"
	BuildFailed    BuildStatus = "failed"
)

// BuildRecord describes one build of an environment
type BuildRecord struct {
	ID          string        `json:"id"`
	Environment string        `json:"environment"`
	Output      string        `json:"output"`
	Target      string        `json:"target"`
	Digest      string        `json:"digest,omitempty"`
	Size        int           `json:"size,omitempty"`
	Status      BuildStatus   `json:"status"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Succeeded reports whether the build produced a valid artifact
func (r *BuildRecord) Succeeded() bool {
	return r.Status != BuildFailed
}

// BuildReport summarizes one bundling run
type BuildReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Listing     string        `json:"listing"`
	Total       int           `json:"total"`
	Failed      int           `json:"failed"`
	Builds      []BuildRecord `json:"builds"`
}
