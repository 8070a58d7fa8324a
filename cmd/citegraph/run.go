package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/breaker"
	"github.com/matsen/citegraph/internal/cache"
	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/database"
	"github.com/matsen/citegraph/internal/exclude"
	"github.com/matsen/citegraph/internal/export"
	"github.com/matsen/citegraph/internal/paper"
	"github.com/matsen/citegraph/internal/politeness"
	"github.com/matsen/citegraph/internal/traverse"
	"github.com/matsen/citegraph/internal/viz"
)

func init() {
	f := runCmd.Flags()
	f.IntP("max-depth", "d", config.Defaults().MaxDepth, "Number of citation levels to expand below the root")
	f.IntP("max-citations", "n", config.Defaults().MaxCitations, "Maximum citing papers fetched per paper")
	f.Float64P("politeness-factor", "p", config.Defaults().PolitenessFactor, "Multiplier of the delay between requests (>1 slower and safer)")
	f.Int("max-request-errors", config.Defaults().MaxRequestErrors, "Consecutive request errors before giving up")
	f.Bool("clear-cache", false, "Drop cached records of this root before running")
	f.StringSliceP("exclude", "x", nil, "Paper id or file of ids whose citations are not expanded (repeatable)")
	f.String("database-config", "", "Credentials file (default: $XDG_CONFIG_HOME/citegraph/databases.yml)")
	f.String("database", config.Defaults().Database, "Database to query: semanticscholar or openalex")
	f.StringP("output", "o", "", "Paper list file (default: stdout unless --graph is set)")
	f.String("format", config.Defaults().Format, "Paper list format: csv, json or bibtex")
	f.StringP("graph", "g", "", "Write an interactive HTML graph to this file")
	f.String("layout", config.Defaults().Layout, "Graph layout: force, circle or grid")

	for key, flag := range map[string]string{
		config.KeyMaxDepth:         "max-depth",
		config.KeyMaxCitations:     "max-citations",
		config.KeyPolitenessFactor: "politeness-factor",
		config.KeyMaxRequestErrors: "max-request-errors",
		config.KeyClearCache:       "clear-cache",
		config.KeyExclude:          "exclude",
		config.KeyDatabaseConfig:   "database-config",
		config.KeyDatabase:         "database",
		config.KeyOutput:           "output",
		config.KeyFormat:           "format",
		config.KeyGraph:            "graph",
		config.KeyLayout:           "layout",
	} {
		mustBind(runCmd, key, flag)
	}

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <kind::value>",
	Short: "Build the citation graph of a paper",
	Long: `Build the citation graph below a root paper.

Level 0 is the root, level 1 the papers citing it, level 2 the papers
citing those, and so on up to --max-depth. Each paper contributes at most
--max-citations citing papers. Excluded papers appear in the graph but their
citations are not fetched.

The paper list is written in level order. Cached data is reused, so a rerun
with the same or smaller limits is served entirely from the cache.

Examples:
  # Papers citing a DOI, as CSV on stdout
  citegraph run doi::10.1093/molbev/msab123

  # Two levels, 50 citations each, list and HTML graph
  citegraph run -d 2 -n 50 -o papers.csv -g graph.html doi::10.1093/molbev/msab123

  # Slow down and skip a survey paper's citers
  citegraph run -p 3 -x doi::10.1145/3065386 arxiv::2106.15928`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		r := &runner{
			registry: newRegistry(),
			stdout:   cmd.OutOrStdout(),
			stderr:   cmd.ErrOrStderr(),
			logger:   newLogger(cmd.ErrOrStderr(), opts.Verbose),
			human:    humanOutput || isatty.IsTerminal(os.Stderr.Fd()),
		}
		return r.run(cmd.Context(), opts, args[0])
	},
}

// runner wires configuration, database, cache and traversal for one run.
type runner struct {
	registry *database.Registry
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
	human    bool
}

// run executes one traversal. All misconfiguration is reported before the
// first request. Outputs are written even when the run stops early on a
// suspected block.
func (r *runner) run(ctx context.Context, opts config.Options, rootArg string) error {
	root, err := paper.ParseIdentifier(rootArg)
	if err != nil {
		return fmt.Errorf("root paper: %w", err)
	}
	if err := viz.ValidateLayout(opts.Layout); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidOption, err)
	}

	excluded, err := exclude.FromArgs(opts.Exclude)
	if err != nil {
		return fmt.Errorf("%w: exclude: %v", config.ErrInvalidOption, err)
	}

	if err := config.LoadDotEnv(); err != nil {
		r.logger.Warn("ignoring .env", "error", err)
	}
	dbConfig, err := config.LoadDatabaseConfig(opts.DatabaseConfig)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidOption, err)
	}
	adapter, err := r.registry.Open(opts.Database, dbConfig.Credentials(opts.Database))
	if err != nil {
		return err
	}

	gate, err := politeness.New(adapter.BaseDelay(), opts.PolitenessFactor)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidOption, err)
	}
	monitor, err := breaker.New(opts.MaxRequestErrors)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidOption, err)
	}

	store, err := openCache(opts.CachePath, root, r.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.ClearCache {
		store.Clear()
	}
	runID := uuid.NewString()
	store.AddRun(cache.RunInfo{
		ID:      runID,
		Creator: cache.Creator,
		Version: Version,
		Time:    time.Now().UTC(),
		Root:    root.String(),
		Options: opts.AsMap(),
	})

	engine, err := traverse.New(adapter, store, gate, monitor, traverse.Options{
		MaxDepth:     opts.MaxDepth,
		MaxCitations: opts.MaxCitations,
		Exclude:      excluded,
	}, r.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidOption, err)
	}

	r.logger.Info("starting run",
		"run", runID,
		"root", root,
		"database", adapter.Name(),
		"delay", gate.Delay(),
		"cache", store.Path())

	g, runErr := engine.Run(ctx, root)
	if err := store.Persist(); err != nil {
		return errors.Join(runErr, err)
	}

	var blocked *breaker.BlockSuspectedError
	if runErr != nil && !errors.As(runErr, &blocked) {
		return runErr
	}

	if err := r.writeOutputs(g, opts); err != nil {
		return errors.Join(runErr, err)
	}
	r.report(g, opts, store.Path(), blocked != nil)
	return runErr
}

// writeOutputs writes the paper list and the HTML graph. Without --output
// and --graph the list goes to stdout.
func (r *runner) writeOutputs(g *traverse.Graph, opts config.Options) error {
	if opts.Output != "" || opts.Graph == "" {
		err := writeTo(opts.Output, r.stdout, func(w io.Writer) error {
			return export.Write(w, g, opts.Format)
		})
		if err != nil {
			return err
		}
	}

	if opts.Graph != "" {
		htmlOpts := viz.HTMLOptions{Layout: opts.Layout}
		if p, ok := g.Paper(g.Root); ok {
			htmlOpts.Title = "Citations of " + p.String()
		}
		err := writeTo(opts.Graph, r.stdout, func(w io.Writer) error {
			return viz.WriteHTML(w, viz.BuildGraph(g), htmlOpts)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// report prints the run summary to stderr, keeping stdout for the list.
func (r *runner) report(g *traverse.Graph, opts config.Options, cachePath string, blocked bool) {
	resp := RunResponse{
		Root:      g.Root.String(),
		Papers:    g.Len(),
		Edges:     len(g.Edges()),
		MaxLevel:  g.MaxLevel(),
		Requests:  g.Stats.Requests,
		CacheHits: g.Stats.CacheHits,
		Failures:  g.Stats.Failures,
		Cache:     cachePath,
		Output:    opts.Output,
		Graph:     opts.Graph,
		Blocked:   blocked,
	}
	for _, id := range g.Stats.NotFound {
		resp.NotFound = append(resp.NotFound, id.String())
	}

	if r.human {
		printRunHuman(r.stderr, resp)
		return
	}
	if err := outputJSON(r.stderr, resp); err != nil {
		r.logger.Warn("writing run summary", "error", err)
	}
}

// openCache opens and loads the cache at path, or the default cache file of
// root when path is empty. An unreadable cache is discarded with a warning.
func openCache(path string, root paper.Identifier, logger *slog.Logger) (*cache.Store, error) {
	if path == "" {
		if root.IsZero() {
			return nil, fmt.Errorf("%w: a root paper or --cache-path is required", config.ErrInvalidOption)
		}
		var err error
		path, err = cache.DefaultPath(root)
		if err != nil {
			return nil, err
		}
	}

	backend, err := cache.OpenBackend(path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	store := cache.New(backend, logger)

	var corrupt *cache.CorruptionError
	if err := store.Load(); err != nil && !errors.As(err, &corrupt) {
		store.Close()
		return nil, fmt.Errorf("loading cache: %w", err)
	}
	return store, nil
}

