package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/quantmind-br/jsonbundler/internal/config"
	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/jsonfile"
	"github.com/quantmind-br/jsonbundler/internal/manifest"
	"github.com/quantmind-br/jsonbundler/internal/output"
	"github.com/quantmind-br/jsonbundler/internal/resolver"
	"github.com/quantmind-br/jsonbundler/internal/schema"
	"github.com/quantmind-br/jsonbundler/internal/utils"
	"github.com/quantmind-br/jsonbundler/internal/validator"
)

// Bundler builds the environments of a listing
type Bundler struct {
	listing   *manifest.Listing
	config    *config.Config
	store     domain.BuildStore
	reader    domain.FileReader
	writer    *output.Writer
	collector *output.ReportCollector
	logger    *utils.Logger
	opts      domain.CommonOptions
	progress  io.Writer

	mu sync.Mutex
	// readDirs holds, per environment, the directories of every file the
	// last build read
	readDirs map[string][]string
}

// Options contains options for creating a bundler
type Options struct {
	domain.CommonOptions
	Listing *manifest.Listing
	Config  *config.Config
	// Store keeps build history; nil disables unchanged detection
	Store     domain.BuildStore
	Reader    domain.FileReader
	Collector *output.ReportCollector
	Logger    *utils.Logger
	// ProgressWriter receives the progress bar, stderr when nil
	ProgressWriter io.Writer
}

// Result is the outcome of one environment build
type Result struct {
	Environment string
	Record      *domain.BuildRecord
	Document    map[string]any
	Err         error
}

// NewBundler creates a bundler for the given listing
func NewBundler(opts Options) (*Bundler, error) {
	if opts.Listing == nil {
		return nil, fmt.Errorf("listing is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	reader := opts.Reader
	if reader == nil {
		reader = jsonfile.NewReader(logger)
	}
	collector := opts.Collector
	if collector == nil {
		collector = output.NewReportCollector(output.CollectorOptions{})
	}

	indent := cfg.Output.Indent
	if opts.Listing.Options.Indent > 0 {
		indent = opts.Listing.Options.Indent
	}
	common := opts.CommonOptions
	common.Force = common.Force || cfg.Output.Force

	return &Bundler{
		listing:   opts.Listing,
		config:    cfg,
		store:     opts.Store,
		reader:    reader,
		writer:    output.NewWriter(output.WriterOptions{Indent: indent, DryRun: common.DryRun}),
		collector: collector,
		logger:    logger.WithComponent("bundler"),
		opts:      common,
		progress:  opts.ProgressWriter,
		readDirs:  make(map[string][]string),
	}, nil
}

// Run builds envs in parallel, or every listed environment when envs is
// empty. A failed environment is logged and left out of the returned names,
// which keep request order; siblings still run. The error summarizes the
// failures.
func (b *Bundler) Run(ctx context.Context, envs []string) ([]string, error) {
	startTime := time.Now()
	b.collector.Reset()
	envs = dedupe(envs)
	if len(envs) == 0 {
		envs = b.listing.Names()
	}
	total := len(envs)

	workers := b.config.Concurrency.Workers
	if b.listing.Options.Concurrency > 0 {
		workers = b.listing.Options.Concurrency
	}

	b.logger.Info().
		Strs("environments", envs).
		Int("concurrency", workers).
		Bool("dry_run", b.opts.DryRun).
		Msg("Starting bundle creation")

	var tick func()
	if b.opts.Progress && total > 0 {
		var bar *progressbar.ProgressBar
		if b.progress != nil {
			bar = utils.NewProgressBarTo(b.progress, total, utils.DescBundling)
		} else {
			bar = utils.NewProgressBar(total, utils.DescBundling)
		}
		defer bar.Finish()
		tick = func() { _ = bar.Add(1) }
	}

	results, errs := utils.ParallelMap(ctx, envs, workers, func(ctx context.Context, env string) (*Result, error) {
		res := b.Build(ctx, env)
		if tick != nil {
			tick()
		}
		return res, res.Err
	})

	if err := b.collector.Flush(); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to write build report")
	}

	var created []string
	for i, res := range results {
		if errs[i] == nil {
			created = append(created, res.Environment)
		}
	}
	failed := len(utils.CollectErrors(errs))
	b.logger.Info().
		Dur("total_duration", time.Since(startTime)).
		Int("total", total).
		Int("success", len(created)).
		Int("failed", failed).
		Msg("Bundle creation completed")

	if ctx.Err() != nil {
		b.logger.Warn().Msg("Bundle creation cancelled")
		return created, ctx.Err()
	}
	if failed > 0 {
		return created, fmt.Errorf("%d/%d environments failed: %w", failed, total, utils.FirstError(errs))
	}
	return created, nil
}

// Build resolves one environment and writes its bundle. Failures are
// returned in Result.Err as *domain.EnvironmentError.
func (b *Bundler) Build(ctx context.Context, name string) *Result {
	logger := b.logger.WithEnvironment(name)
	rec := &domain.BuildRecord{
		Environment: name,
		StartedAt:   time.Now(),
	}
	res := &Result{Environment: name, Record: rec}

	reader := &trackingReader{reader: b.reader}
	doc, err := b.build(ctx, name, reader, rec, logger)
	b.setReadDirs(name, reader.dirs())
	rec.Duration = time.Since(rec.StartedAt)
	if err != nil {
		rec.Status = domain.BuildFailed
		rec.Error = err.Error()
		res.Err = domain.NewEnvironmentError(name, err)
		logger.Error().
			Err(err).
			Dur("duration", rec.Duration).
			Msg("Environment build failed")
	} else {
		res.Document = doc
		logger.Info().
			Str("output", rec.Output).
			Str("status", string(rec.Status)).
			Dur("duration", rec.Duration).
			Msg("Bundle created")
	}

	b.record(ctx, rec, logger)
	return res
}

func (b *Bundler) build(ctx context.Context, name string, reader domain.FileReader, rec *domain.BuildRecord, logger *utils.Logger) (map[string]any, error) {
	env, err := b.listing.Environment(name)
	if err != nil {
		return nil, err
	}
	if err := env.Validate(); err != nil {
		if issues, ok := domain.AsIssues(err); ok {
			logger.LogIssues("environment: "+name, issues)
		}
		return nil, err
	}
	rec.Output = env.Output
	rec.Target = env.Target

	reg, err := schema.LoadDir(ctx, env.SchemaDB, schema.LoadOptions{
		Pattern: b.config.Schema.Pattern,
		Reader:  reader,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read schema DB %s: %w", env.SchemaDB, err)
	}

	v, err := validator.New(reg, validator.Options{Draft: b.config.Schema.Draft})
	if err != nil {
		return nil, err
	}
	engine, err := resolver.NewEngine(resolver.Options{
		Registry:  reg,
		Reader:    reader,
		Validator: v,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	var schemaRef any
	if env.Schema != "" {
		schemaRef = env.Schema
	}
	doc, err := engine.Resolve(ctx, env.Target, schemaRef)
	if err != nil {
		return nil, err
	}

	data, err := b.writer.Marshal(doc)
	if err != nil {
		return nil, err
	}
	rec.Digest = output.Digest(data)
	rec.Size = len(data)

	switch {
	case b.unchanged(ctx, env, rec.Digest):
		rec.Status = domain.BuildUnchanged
		logger.Debug().Str("digest", rec.Digest).Msg("Bundle unchanged, skipping write")
	case b.writer.IsDryRun():
		rec.Status = domain.BuildDryRun
	default:
		if err := b.writer.Write(ctx, env.Output, data); err != nil {
			return nil, err
		}
		rec.Status = domain.BuildWritten
	}
	return doc, nil
}

// unchanged reports whether the last successful build produced the same bytes
// at the same output and the file on disk still holds them
func (b *Bundler) unchanged(ctx context.Context, env *manifest.Environment, digest string) bool {
	if b.store == nil || b.opts.Force {
		return false
	}
	last, err := b.store.Last(ctx, env.Name)
	if err != nil {
		if !errors.Is(err, domain.ErrNoBuild) {
			b.logger.Debug().Err(err).Msg("Failed to read last build")
		}
		return false
	}
	if !last.Succeeded() || last.Digest != digest || last.Output != env.Output {
		return false
	}
	onDisk, err := output.FileDigest(env.Output)
	return err == nil && onDisk == digest
}

func (b *Bundler) record(ctx context.Context, rec *domain.BuildRecord, logger *utils.Logger) {
	b.collector.Add(rec)
	if b.store == nil || b.opts.DryRun {
		return
	}
	if err := b.store.Record(ctx, rec); err != nil {
		logger.Warn().Err(err).Msg("Failed to record build")
	}
}

// EnvStatus is the latest known build of an environment
type EnvStatus struct {
	Environment string
	Output      string
	Last        *domain.BuildRecord
}

// Status returns the last recorded build of every listed environment, in
// name order. Last is nil for environments never built.
func (b *Bundler) Status(ctx context.Context) ([]EnvStatus, error) {
	names := b.listing.Names()
	out := make([]EnvStatus, 0, len(names))
	for _, name := range names {
		env, _ := b.listing.Environment(name)
		st := EnvStatus{Environment: name, Output: env.Output}
		if b.store != nil {
			last, err := b.store.Last(ctx, name)
			switch {
			case err == nil:
				st.Last = last
			case !errors.Is(err, domain.ErrNoBuild):
				return nil, err
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// WatchPaths returns the directories whose changes affect envs and the
// output files, which must not trigger rebuilds. Directories are those of the
// listing, the targets and the schema registries, plus the directory of every
// fragment read by the last build of each environment.
func (b *Bundler) WatchPaths(envs []string) (roots []string, outputs []string) {
	envs = dedupe(envs)
	if len(envs) == 0 {
		envs = b.listing.Names()
	}

	seen := make(map[string]bool)
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			roots = append(roots, dir)
		}
	}

	if b.listing.Path != "" {
		add(filepath.Dir(b.listing.Path))
	}
	for _, name := range envs {
		env, err := b.listing.Environment(name)
		if err != nil {
			continue
		}
		add(filepath.Dir(env.Target))
		add(env.SchemaDB)
		for _, dir := range b.lastReadDirs(name) {
			add(dir)
		}
		outputs = append(outputs, filepath.Clean(env.Output))
	}
	sort.Strings(roots)
	sort.Strings(outputs)
	return roots, outputs
}

func (b *Bundler) setReadDirs(env string, dirs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readDirs[env] = dirs
}

func (b *Bundler) lastReadDirs(env string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readDirs[env]
}

// trackingReader remembers the directory of every path it is asked to read,
// including paths that fail, so a missing fragment is watched once created
type trackingReader struct {
	reader domain.FileReader
	mu     sync.Mutex
	seen   map[string]bool
}

func (r *trackingReader) Read(ctx context.Context, path string) (any, error) {
	r.mu.Lock()
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	r.seen[filepath.Dir(filepath.Clean(path))] = true
	r.mu.Unlock()
	return r.reader.Read(ctx, path)
}

func (r *trackingReader) dirs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.seen))
	for dir := range r.seen {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

// Close releases the build store
func (b *Bundler) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
