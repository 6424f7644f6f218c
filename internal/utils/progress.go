package utils

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// DescBundling is the progress bar description of a bundle run
const DescBundling = "Bundling"

// NewProgressBar creates a progress bar on stderr. A total below one renders
// a spinner instead of a bar.
//
//	bar := utils.NewProgressBar(len(envs), utils.DescBundling)
//	defer bar.Finish()
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	return NewProgressBarTo(os.Stderr, total, description)
}

// NewProgressBarTo is NewProgressBar with an explicit writer. A zero total
// is shown as a spinner. The bar is drawn as soon as it is created.
func NewProgressBarTo(w io.Writer, total int, description string) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	}

	if total <= 0 {
		total = -1
		opts = append(opts, progressbar.OptionSpinnerType(14))
	} else {
		opts = append(opts, progressbar.OptionShowIts())
	}

	return progressbar.NewOptions(total, opts...)
}
