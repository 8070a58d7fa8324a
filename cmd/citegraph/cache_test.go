package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/paper"
)

func TestPrintCacheInfo(t *testing.T) {
	tr := newTestRun(t)
	_, err := tr.run(t, "doi::10.1/root")
	require.NoError(t, err)

	store, err := openCache(tr.opts.CachePath, paper.Identifier{}, nil)
	require.NoError(t, err)
	defer store.Close()

	var buf bytes.Buffer
	require.NoError(t, printCacheInfo(&buf, store, false))

	var resp CacheInfoResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, tr.opts.CachePath, resp.Path)
	assert.Equal(t, 4, resp.Records)
	assert.Equal(t, 3, resp.Expanded)
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "doi::10.1/root", resp.Runs[0].Root)
	assert.Len(t, resp.Runs[0].ID, 36)

	buf.Reset()
	require.NoError(t, printCacheInfo(&buf, store, true))
	assert.Contains(t, buf.String(), "papers:    4 (4 with metadata)")
}

func TestOpenCacheNeedsRootOrPath(t *testing.T) {
	_, err := openCache("", paper.Identifier{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidOption)
}

func TestOpenCacheDefaultPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	store, err := openCache("", stubID("root"), nil)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, "doi-10.1-root.cache.jsonl", filepath.Base(store.Path()))
}
