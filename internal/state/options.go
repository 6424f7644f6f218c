package state

import (
	"time"

	"github.com/quantmind-br/jsonbundler/internal/utils"
)

// DefaultDirectory is the store location relative to the working directory
const DefaultDirectory = ".jsonbundler/state"

// Options configures the build store
type Options struct {
	Directory string
	InMemory  bool
	// Disabled makes every operation a no-op
	Disabled bool
	Logger   *utils.Logger

	// OpenRetries bounds the attempts made while the directory is locked
	OpenRetries   int
	RetryInterval time.Duration
}

// DefaultOptions returns default store options
func DefaultOptions() Options {
	return Options{
		Directory:     DefaultDirectory,
		OpenRetries:   5,
		RetryInterval: 200 * time.Millisecond,
	}
}
