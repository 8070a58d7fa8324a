package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/database"
	"github.com/matsen/citegraph/internal/paper"
)

// stubDB is a two-level citation network: a and b cite the root, c cites
// both a and b.
type stubDB struct {
	// citeErr fails every citation request except the root's.
	citeErr  error
	requests int
}

func stubID(name string) paper.Identifier {
	return paper.MustIdentifier(paper.KindDOI, "10.1/"+name)
}

var stubCiters = map[string][]string{
	"root": {"a", "b"},
	"a":    {"c"},
	"b":    {"c"},
}

func stubPaper(name string) paper.Paper {
	id := stubID(name)
	return paper.Paper{
		ID:            id,
		ExternalIDs:   []paper.Identifier{id},
		Title:         "Paper " + name,
		Authors:       []paper.Author{{First: "A", Last: strings.ToUpper(name)}},
		Year:          2020,
		CitationCount: paper.IntPtr(len(stubCiters[name])),
	}
}

func (s *stubDB) Name() string             { return "stub" }
func (s *stubDB) BaseDelay() time.Duration { return 0 }

func (s *stubDB) FetchPaper(ctx context.Context, id paper.Identifier) (paper.Paper, error) {
	s.requests++
	name := strings.TrimPrefix(id.Value(), "10.1/")
	if name == "missing" {
		return paper.Paper{}, fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	return stubPaper(name), nil
}

func (s *stubDB) FetchCitations(ctx context.Context, p paper.Paper, cursor string, limit int) (database.CitationPage, error) {
	s.requests++
	if s.citeErr != nil && p.ID != stubID("root") {
		return database.CitationPage{}, s.citeErr
	}
	var page database.CitationPage
	for _, c := range stubCiters[strings.TrimPrefix(p.ID.Value(), "10.1/")] {
		if len(page.Citing) == limit {
			break
		}
		page.Citing = append(page.Citing, stubPaper(c))
	}
	return page, nil
}

type testRun struct {
	db     *stubDB
	runner *runner
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	opts   config.Options
}

func newTestRun(t *testing.T) *testRun {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	db := &stubDB{}
	registry := database.NewRegistry()
	registry.Register("stub", func(database.Credentials) database.Adapter { return db })

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	opts := config.Defaults()
	opts.Database = "stub"
	opts.MaxDepth = 2
	opts.CachePath = filepath.Join(t.TempDir(), "root.cache.jsonl")

	return &testRun{
		db:     db,
		stdout: stdout,
		stderr: stderr,
		opts:   opts,
		runner: &runner{
			registry: registry,
			stdout:   stdout,
			stderr:   stderr,
			logger:   newLogger(io.Discard, 0),
		},
	}
}

func (tr *testRun) run(t *testing.T, root string) (RunResponse, error) {
	t.Helper()
	tr.stdout.Reset()
	tr.stderr.Reset()
	err := tr.runner.run(context.Background(), tr.opts, root)

	var resp RunResponse
	if tr.stderr.Len() > 0 {
		require.NoError(t, json.Unmarshal(tr.stderr.Bytes(), &resp), tr.stderr.String())
	}
	return resp, err
}

func TestRunWritesLevelOrderedCSV(t *testing.T) {
	tr := newTestRun(t)

	resp, err := tr.run(t, "doi::10.1/root")
	require.NoError(t, err)

	records, err := csv.NewReader(tr.stdout).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"level", "id", "title", "authors", "year", "citation_count", "url"}, records[0])

	var got []string
	for _, rec := range records[1:] {
		got = append(got, rec[0]+" "+rec[1])
	}
	assert.Equal(t, []string{
		"0 doi::10.1/root",
		"1 doi::10.1/a",
		"1 doi::10.1/b",
		"2 doi::10.1/c",
	}, got)

	assert.Equal(t, 4, resp.Papers)
	assert.Equal(t, 4, resp.Edges)
	assert.Equal(t, 2, resp.MaxLevel)
	assert.Equal(t, tr.opts.CachePath, resp.Cache)
	assert.Positive(t, resp.Requests)
}

func TestRunRerunIsServedFromCache(t *testing.T) {
	tr := newTestRun(t)

	_, err := tr.run(t, "doi::10.1/root")
	require.NoError(t, err)
	first := tr.stdout.String()
	tr.db.requests = 0

	resp, err := tr.run(t, "doi::10.1/root")
	require.NoError(t, err)
	assert.Equal(t, 0, tr.db.requests)
	assert.Equal(t, 0, resp.Requests)
	assert.Equal(t, first, tr.stdout.String())
}

func TestRunWritesFiles(t *testing.T) {
	tr := newTestRun(t)
	dir := t.TempDir()
	tr.opts.Output = filepath.Join(dir, "out", "papers.json")
	tr.opts.Format = config.FormatJSON
	tr.opts.Graph = filepath.Join(dir, "graph.html")

	_, err := tr.run(t, "doi::10.1/root")
	require.NoError(t, err)
	assert.Empty(t, tr.stdout.String())

	data, err := os.ReadFile(tr.opts.Output)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	assert.Len(t, rows, 4)

	page, err := os.ReadFile(tr.opts.Graph)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Citations of ROOT 2020</title>")
	assert.Contains(t, string(page), "doi::10.1/c")
}

func TestRunStopsOnSuspectedBlock(t *testing.T) {
	tr := newTestRun(t)
	tr.opts.MaxRequestErrors = 1
	tr.db.citeErr = fmt.Errorf("%w: status 503", database.ErrNetworkError)

	resp, err := tr.run(t, "doi::10.1/root")
	require.Error(t, err)
	assert.Equal(t, ExitBlocked, exitCode(err))

	assert.True(t, resp.Blocked)
	assert.Equal(t, 3, resp.Papers)
	assert.Equal(t, 2, resp.Failures)
	assert.Contains(t, tr.stdout.String(), "doi::10.1/b")
}

func TestRunRootNotFound(t *testing.T) {
	tr := newTestRun(t)

	_, err := tr.run(t, "doi::10.1/missing")
	require.Error(t, err)
	assert.Equal(t, ExitDataError, exitCode(err))
	assert.Empty(t, tr.stdout.String())
}

func TestRunRejectsMisconfiguration(t *testing.T) {
	tests := []struct {
		name   string
		root   string
		modify func(*config.Options)
	}{
		{"bad root", "isbn::123", func(*config.Options) {}},
		{"bad layout", "doi::10.1/root", func(o *config.Options) { o.Layout = "spiral" }},
		{"bad exclude", "doi::10.1/root", func(o *config.Options) { o.Exclude = []string{"nope::x"} }},
		{"unknown database", "doi::10.1/root", func(o *config.Options) { o.Database = "crossref" }},
		{"missing credentials file", "doi::10.1/root", func(o *config.Options) { o.DatabaseConfig = "/nonexistent/databases.yml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestRun(t)
			tt.modify(&tr.opts)

			_, err := tr.run(t, tt.root)
			require.Error(t, err)
			assert.Equal(t, ExitConfigError, exitCode(err))
			assert.Equal(t, 0, tr.db.requests)
		})
	}
}

func TestRunClearCache(t *testing.T) {
	tr := newTestRun(t)
	_, err := tr.run(t, "doi::10.1/root")
	require.NoError(t, err)

	tr.db.requests = 0
	tr.opts.ClearCache = true
	resp, err := tr.run(t, "doi::10.1/root")
	require.NoError(t, err)
	assert.Positive(t, tr.db.requests)
	assert.Equal(t, tr.db.requests, resp.Requests)
}
