package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// newLogger returns a text logger on w. Warnings are always shown; -v adds
// info and -vv debug messages.
func newLogger(w io.Writer, verbose int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// outputJSON writes a value as formatted JSON to w.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTo creates path, or uses stdout for "" and "-", and passes it to
// write.
func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// RunResponse summarizes a finished run.
type RunResponse struct {
	Root      string   `json:"root"`
	Papers    int      `json:"papers"`
	Edges     int      `json:"edges"`
	MaxLevel  int      `json:"max_level"`
	Requests  int      `json:"requests"`
	CacheHits int      `json:"cache_hits"`
	Failures  int      `json:"failures"`
	NotFound  []string `json:"not_found,omitempty"`
	Cache     string   `json:"cache"`
	Output    string   `json:"output,omitempty"`
	Graph     string   `json:"graph,omitempty"`
	Blocked   bool     `json:"blocked,omitempty"`
}

// CacheInfoResponse describes a cache file.
type CacheInfoResponse struct {
	Path         string    `json:"path"`
	Records      int       `json:"records"`
	WithMetadata int       `json:"with_metadata"`
	Expanded     int       `json:"expanded"`
	Citations    int       `json:"citations"`
	Runs         []RunLine `json:"runs"`
}

// RunLine is one entry of the cache run history.
type RunLine struct {
	ID      string         `json:"id,omitempty"`
	Time    string         `json:"time"`
	Version string         `json:"version"`
	Root    string         `json:"root"`
	Options map[string]any `json:"options,omitempty"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// printRunHuman prints the run summary in human-readable format.
func printRunHuman(w io.Writer, r RunResponse) {
	fmt.Fprintf(w, "%s: %d papers, %d citations, %d levels\n", r.Root, r.Papers, r.Edges, r.MaxLevel+1)
	fmt.Fprintf(w, "  requests: %d, cache hits: %d, failures: %d\n", r.Requests, r.CacheHits, r.Failures)
	if len(r.NotFound) > 0 {
		fmt.Fprintf(w, "  not found: %d\n", len(r.NotFound))
	}
	fmt.Fprintf(w, "  cache: %s\n", r.Cache)
	if r.Blocked {
		fmt.Fprintln(w, "  stopped early: too many consecutive request errors")
	}
}
