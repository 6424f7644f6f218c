package domain

// CommonOptions contains shared options for bundling and output.
type CommonOptions struct {
	Verbose  bool
	DryRun   bool
	Force    bool
	Progress bool
}
