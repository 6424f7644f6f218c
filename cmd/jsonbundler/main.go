package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quantmind-br/jsonbundler/internal/app"
	"github.com/quantmind-br/jsonbundler/internal/config"
	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/jsonfile"
	"github.com/quantmind-br/jsonbundler/internal/manifest"
	"github.com/quantmind-br/jsonbundler/internal/output"
	"github.com/quantmind-br/jsonbundler/internal/resolver"
	"github.com/quantmind-br/jsonbundler/internal/schema"
	"github.com/quantmind-br/jsonbundler/internal/state"
	"github.com/quantmind-br/jsonbundler/internal/utils"
	"github.com/quantmind-br/jsonbundler/internal/validator"
	"github.com/quantmind-br/jsonbundler/internal/watch"
	"github.com/quantmind-br/jsonbundler/pkg/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds state shared by every command of one invocation
type cli struct {
	cfgFile string
	verbose bool
	v       *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "jsonbundler",
		Short: "Assemble schema-valid JSON bundles per environment",
		Long: `jsonbundler resolves manifests into JSON documents, validates them against a
directory of JSON schemas and writes one bundle per target environment.

Environments are declared in a listing file (environments.json by default):

  {"environments": {"dev": {"output": "dist/dev.json",
                            "target": "manifests/dev.json",
                            "schemaDb": "schemas"}}}`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is "+config.ConfigFilePath()+")")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("manifest", "m", "", "Environment listing file")
	rootCmd.PersistentFlags().IntP("workers", "j", config.DefaultWorkers, "Number of environments built concurrently")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format (pretty or json)")

	_ = c.v.BindPFlag("manifest", rootCmd.PersistentFlags().Lookup("manifest"))
	_ = c.v.BindPFlag("concurrency.workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = c.v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(c.createCmd())
	rootCmd.AddCommand(c.resolveCmd())
	rootCmd.AddCommand(c.statusCmd())
	rootCmd.AddCommand(c.historyCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func (c *cli) loadConfig() (*config.Config, error) {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	}
	cfg, err := config.LoadFrom(c.v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (c *cli) newLogger(cmd *cobra.Command, cfg *config.Config) *utils.Logger {
	return utils.NewLogger(utils.LoggerOptions{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cmd.ErrOrStderr(),
		Verbose: c.verbose,
	})
}

func (c *cli) loadListing(cfg *config.Config) (*manifest.Listing, error) {
	path := cfg.Manifest
	if path == config.DefaultManifest {
		path = app.DetectListing(path, ".")
	}
	if path == "" {
		return nil, fmt.Errorf("no environment listing found (tried %s, %s)",
			cfg.Manifest, strings.Join(app.ListingCandidates, ", "))
	}
	loader := manifest.NewLoaderWithDefaults(manifest.Options{
		Concurrency: cfg.Concurrency.Workers,
		Indent:      cfg.Output.Indent,
	})
	return loader.Load(path)
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*state.Store, error) {
	opts := state.DefaultOptions()
	opts.Directory = cfg.State.Directory
	opts.Disabled = !cfg.State.Enabled
	opts.Logger = logger
	store, err := state.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open build history: %w", err)
	}
	return store, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func (c *cli) createCmd() *cobra.Command {
	var (
		envs     []string
		dryRun   bool
		watching bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"create-json-bundle"},
		Short:   "Build the bundles of the given environments",
		Long: `Build the bundles of the given environments, or of every listed environment
when none is given. A failed environment is reported and skipped; the others
are still written.

With --watch, the directories of the listing, the targets, the schema
registries and every fragment read by the first build are watched. Fragment
directories first referenced by a later rebuild need a restart.`,
		Example: `  jsonbundler create -f dev,prod
  jsonbundler create --dry-run
  jsonbundler create -f dev --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			logger := c.newLogger(cmd, cfg)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			listing, err := c.loadListing(cfg)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}

			collector := output.NewReportCollector(output.CollectorOptions{
				Path:    cfg.Output.Report,
				Listing: listing.Path,
			})
			b, err := app.NewBundler(app.Options{
				CommonOptions: domain.CommonOptions{
					Verbose:  c.verbose,
					DryRun:   dryRun,
					Progress: progress && !watching,
				},
				Listing:   listing,
				Config:    cfg,
				Store:     store,
				Collector: collector,
				Logger:    logger,
			})
			if err != nil {
				_ = store.Close()
				return err
			}
			defer b.Close()

			created, runErr := b.Run(ctx, envs)
			printCreated(cmd, listing, created)
			if collector.IsEnabled() {
				logger.Info().
					Str("file", cfg.Output.Report).
					Int("builds", collector.Count()).
					Msg("Build report written")
			}
			if !watching {
				return runErr
			}
			return rebuildOnChange(ctx, cmd, b, listing, cfg, envs, logger)
		},
	}

	cmd.Flags().StringSliceVarP(&envs, "env", "f", nil, "Comma-separated environments to build (default all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve and validate without writing files")
	cmd.Flags().Bool("force", false, "Rewrite bundles even when unchanged")
	cmd.Flags().BoolVar(&watching, "watch", false, "Rebuild when manifests or schemas change")
	cmd.Flags().BoolVar(&progress, "progress", false, "Show a progress bar")
	cmd.Flags().String("report", "", "Write a JSON build report to this file")
	cmd.Flags().Bool("no-state", false, "Do not read or record build history")

	_ = c.v.BindPFlag("output.force", cmd.Flags().Lookup("force"))
	_ = c.v.BindPFlag("output.report", cmd.Flags().Lookup("report"))
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if noState, _ := cmd.Flags().GetBool("no-state"); noState {
			c.v.Set("state.enabled", false)
		}
	}

	return cmd
}

func printCreated(cmd *cobra.Command, listing *manifest.Listing, created []string) {
	for _, name := range created {
		env, err := listing.Environment(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", name, env.Output)
	}
}

// rebuildOnChange reruns the build on every debounced change until ctx is
// cancelled
func rebuildOnChange(ctx context.Context, cmd *cobra.Command, b *app.Bundler, listing *manifest.Listing,
	cfg *config.Config, envs []string, logger *utils.Logger) error {
	roots, outputs := b.WatchPaths(envs)
	if cfg.Output.Report != "" {
		outputs = append(outputs, cfg.Output.Report)
	}
	w, err := watch.New(watch.Options{
		Roots:        roots,
		Debounce:     cfg.Watch.Debounce,
		ExcludeDirs:  cfg.Watch.Exclude,
		ExcludeFiles: outputs,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return err
	}

	for trig := range w.Triggers() {
		logger.Info().Strs("files", trig.Paths).Msg("Change detected, rebuilding")
		created, err := b.Run(ctx, envs)
		if err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Rebuild finished with failures")
		}
		printCreated(cmd, listing, created)
	}
	if n := w.Dropped(); n > 0 {
		logger.Warn().Int64("dropped", n).Msg("Some changes were not rebuilt")
	}
	return nil
}

func (c *cli) resolveCmd() *cobra.Command {
	var schemaDB, schemaRef string

	cmd := &cobra.Command{
		Use:   "resolve <manifest>",
		Short: "Resolve one manifest and print the validated document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			logger := c.newLogger(cmd, cfg)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			reader := jsonfile.NewReader(logger)
			reg, err := schema.LoadDir(ctx, schemaDB, schema.LoadOptions{
				Pattern: cfg.Schema.Pattern,
				Reader:  reader,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("unable to read schema DB %s: %w", schemaDB, err)
			}
			v, err := validator.New(reg, validator.Options{Draft: cfg.Schema.Draft})
			if err != nil {
				return err
			}
			engine, err := resolver.NewEngine(resolver.Options{
				Registry:  reg,
				Reader:    reader,
				Validator: v,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			var ref any
			if schemaRef != "" {
				ref = schemaRef
			}
			doc, err := engine.Resolve(ctx, args[0], ref)
			if err != nil {
				return err
			}

			data, err := output.NewWriter(output.WriterOptions{Indent: cfg.Output.Indent}).Marshal(doc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&schemaDB, "schema-db", "", "Schema registry directory")
	cmd.Flags().StringVar(&schemaRef, "schema", "", "Governing schema id or file, when the manifest names none")
	_ = cmd.MarkFlagRequired("schema-db")

	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last build of every environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			logger := c.newLogger(cmd, cfg)
			ctx := cmd.Context()

			listing, err := c.loadListing(cfg)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			b, err := app.NewBundler(app.Options{Listing: listing, Config: cfg, Store: store, Logger: logger})
			if err != nil {
				_ = store.Close()
				return err
			}
			defer b.Close()

			if store.IsDisabled() {
				fmt.Fprintln(cmd.ErrOrStderr(), "build history is disabled")
			}

			statuses, err := b.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range statuses {
				if st.Last == nil {
					fmt.Fprintf(out, "%-16s %-10s %s\n", st.Environment, "never", st.Output)
					continue
				}
				fmt.Fprintf(out, "%-16s %-10s %s  %s  %s\n",
					st.Environment, st.Last.Status, st.Output,
					st.Last.StartedAt.Format(time.RFC3339), shortDigest(st.Last))
			}
			return nil
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <env>",
		Short: "List recent builds of an environment, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			logger := c.newLogger(cmd, cfg)
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.History(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("%w for %s", domain.ErrNoBuild, args[0])
			}
			out := cmd.OutOrStdout()
			for _, rec := range records {
				line := fmt.Sprintf("%s  %-10s %-8s %s",
					rec.StartedAt.Format(time.RFC3339), rec.Status,
					rec.Duration.Round(time.Millisecond), shortDigest(rec))
				if rec.Error != "" {
					line += "  " + rec.Error
				}
				fmt.Fprintln(out, strings.TrimRight(line, " "))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of builds (0 for all)")
	return cmd
}

func shortDigest(rec *domain.BuildRecord) string {
	if len(rec.Digest) > 12 {
		return rec.Digest[:12]
	}
	return rec.Digest
}

func versionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), version.Full())
				return nil
			}
			data, err := version.Get().JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
