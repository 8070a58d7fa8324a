// Package main provides the citegraph CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/database"
	"github.com/matsen/citegraph/internal/openalex"
	"github.com/matsen/citegraph/internal/s2"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configFile  string
	humanOutput bool

	// v holds the merged options of flags, CITEGRAPH_* variables and the
	// options file.
	v = config.NewViper("")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "citegraph",
	Short: "Build citation graphs from scholarly databases",
	Long: `citegraph builds the graph of papers citing a root paper, level by
level, from Semantic Scholar or OpenAlex.

Every response is cached per root paper, so reruns with the same or smaller
limits make no requests and larger limits only fetch what is missing.
Requests are paced politely and the run stops when too many fail in a row.

Identifiers are written kind::value, e.g. doi::10.1093/molbev/msab123,
arxiv::2106.15928, dblp::conf/nips/VaswaniSPUJGKP17 or corpusid::235651.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadOptionsFile,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Options file (default: ./citegraph.yaml or $XDG_CONFIG_HOME/citegraph/citegraph.yaml)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Log more (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().String("cache-path", "", "Cache file, .jsonl or .db/.sqlite (default: per root paper under $XDG_CACHE_HOME/citegraph)")
	mustBind(rootCmd, config.KeyVerbose, "verbose")
	mustBind(rootCmd, config.KeyCachePath, "cache-path")
	rootCmd.Version = Version
}

// loadOptionsFile reads the options file once flags are parsed.
func loadOptionsFile(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	return config.ReadInConfig(v)
}

// loadOptions returns the validated options of this invocation.
func loadOptions() (config.Options, error) {
	return config.Load(v)
}

// mustBind binds the named flag of cmd to an option key. Binding only fails
// for unknown flags, which is a programming error.
func mustBind(cmd *cobra.Command, key, flag string) {
	f := cmd.Flags().Lookup(flag)
	if f == nil {
		f = cmd.PersistentFlags().Lookup(flag)
	}
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// newRegistry returns the registry of every supported database.
func newRegistry() *database.Registry {
	r := database.NewRegistry()
	s2.Register(r)
	openalex.Register(r)
	return r
}
