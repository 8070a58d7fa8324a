package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/cache"
	"github.com/matsen/citegraph/internal/paper"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the cache of a root paper",
	Long: `Inspect or clear the cache of a root paper.

The cache is selected by --cache-path, or derived from the root paper id
like the run command does.`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info [kind::value]",
	Short: "Show what a cache holds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCacheFromArgs(args)
		if err != nil {
			return err
		}
		defer store.Close()
		return printCacheInfo(cmd.OutOrStdout(), store, humanOutput)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [kind::value]",
	Short: "Drop all cached papers, keeping the run history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCacheFromArgs(args)
		if err != nil {
			return err
		}
		defer store.Close()

		store.Clear()
		if err := store.Persist(); err != nil {
			return err
		}

		if humanOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Path())
			return nil
		}
		return outputJSON(cmd.OutOrStdout(), StatusResponse{Status: "cleared", Path: store.Path()})
	},
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openCacheFromArgs opens the cache named by --cache-path or by the root id
// in args.
func openCacheFromArgs(args []string) (*cache.Store, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}

	var root paper.Identifier
	if len(args) == 1 {
		root, err = paper.ParseIdentifier(args[0])
		if err != nil {
			return nil, fmt.Errorf("root paper: %w", err)
		}
	}
	return openCache(opts.CachePath, root, newLogger(rootCmd.ErrOrStderr(), opts.Verbose))
}

// printCacheInfo writes the statistics and run history of store.
func printCacheInfo(w io.Writer, store *cache.Store, human bool) error {
	stats := store.Stats()
	resp := CacheInfoResponse{
		Path:         store.Path(),
		Records:      stats.Records,
		WithMetadata: stats.WithMetadata,
		Expanded:     stats.Expanded,
		Citations:    stats.Citations,
		Runs:         []RunLine{},
	}
	for _, run := range store.Runs() {
		resp.Runs = append(resp.Runs, RunLine{
			ID:      run.ID,
			Time:    run.Time.Format(time.RFC3339),
			Version: run.Version,
			Root:    run.Root,
			Options: run.Options,
		})
	}

	if !human {
		return outputJSON(w, resp)
	}

	fmt.Fprintf(w, "Cache: %s\n", resp.Path)
	fmt.Fprintf(w, "  papers:    %d (%d with metadata)\n", resp.Records, resp.WithMetadata)
	fmt.Fprintf(w, "  expanded:  %d\n", resp.Expanded)
	fmt.Fprintf(w, "  citations: %d\n", resp.Citations)
	if len(resp.Runs) > 0 {
		fmt.Fprintf(w, "  runs:\n")
		for _, run := range resp.Runs {
			fmt.Fprintf(w, "    %s  %s  (%s)\n", run.Time, run.Root, run.Version)
		}
	}
	return nil
}
