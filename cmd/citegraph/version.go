package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/cache"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the databases it can query",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := newRegistry().Names()
		if humanOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "citegraph %s (cache schema %d, databases: %v)\n", Version, cache.SchemaVersion, names)
			return nil
		}
		return outputJSON(cmd.OutOrStdout(), map[string]any{
			"version":      Version,
			"cache_schema": cache.SchemaVersion,
			"databases":    names,
		})
	},
}
