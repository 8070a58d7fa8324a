package cache

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/citegraph/internal/paper"
)

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")
	s := seededStore(t, path)
	require.NoError(t, s.Persist())
	require.NoError(t, s.Close())

	backend, err := OpenSQLiteBackend(path)
	require.NoError(t, err)
	defer backend.Close()

	loaded := New(backend, nil)
	require.NoError(t, loaded.Load())

	assert.Equal(t, s.Stats(), loaded.Stats())

	rec, ok := loaded.Get(doi("10.1/root"))
	require.True(t, ok)
	assert.Equal(t, "Root paper", rec.Paper.Title)
	assert.Equal(t, 5, *rec.FetchedLimit)
	assert.Equal(t, ids("10.1/a", "10.1/b"), rec.Citations)

	leaf, ok := loaded.Get(doi("10.1/a"))
	require.True(t, ok)
	assert.Nil(t, leaf.FetchedLimit)
	assert.Empty(t, leaf.Citations)
}

func TestSQLiteEmptyDatabaseIsEmpty(t *testing.T) {
	backend, err := OpenSQLiteBackend(filepath.Join(t.TempDir(), "new.sqlite"))
	require.NoError(t, err)
	defer backend.Close()

	s := New(backend, nil)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
}

func TestSQLiteVersionMismatchIsDiscarded(t *testing.T) {
	backend, err := OpenSQLiteBackend(filepath.Join(t.TempDir(), "old.db"))
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Save(&Snapshot{
		Version: SchemaVersion - 1,
		Records: []Record{{ID: doi("10.1/a")}},
	}))

	s := New(backend, nil)
	err = s.Load()
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.Equal(t, 0, s.Len())
}

func TestSQLitePersistAfterOldLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);
		CREATE TABLE records (id TEXT PRIMARY KEY, data TEXT);
		INSERT INTO meta (key, value) VALUES ('version', '2');
		INSERT INTO records (id, data) VALUES ('doi::10.1/old', '{}');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	backend, err := OpenSQLiteBackend(path)
	require.NoError(t, err)
	s := New(backend, nil)
	assert.True(t, errors.Is(s.Load(), ErrSchemaMismatch))

	s.PutPaper(paper.Paper{ID: doi("10.1/new"), Title: "New"})
	require.NoError(t, s.Persist())
	require.NoError(t, s.Close())

	backend, err = OpenSQLiteBackend(path)
	require.NoError(t, err)
	defer backend.Close()
	reloaded := New(backend, nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 1, reloaded.Len())
	rec, ok := reloaded.Get(doi("10.1/new"))
	require.True(t, ok)
	assert.Equal(t, "New", rec.Paper.Title)
}

func TestOpenBackendMovesUnreadableDatabaseAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.db")
	garbage := bytes.Repeat([]byte("definitely not a sqlite file "), 200)
	require.NoError(t, os.WriteFile(path, garbage, 0644))

	backend, err := OpenBackend(path, nil)
	require.NoError(t, err)
	defer backend.Close()

	_, err = os.Stat(path + ".corrupt")
	assert.NoError(t, err)

	s := New(backend, nil)
	require.NoError(t, s.Load())
	s.PutPaper(paper.Paper{ID: doi("10.1/a"), Title: "A"})
	require.NoError(t, s.Persist())
}

func TestOpenBackendSelectsByExtension(t *testing.T) {
	dir := t.TempDir()

	b, err := OpenBackend(filepath.Join(dir, "x.cache.jsonl"), nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONLBackend{}, b)

	b, err = OpenBackend(filepath.Join(dir, "x.SQLite3"), nil)
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &SQLiteBackend{}, b)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		id   paper.Identifier
		want string
	}{
		{doi("10.1093/molbev/msab123"), "doi-10.1093-molbev-msab123.cache.jsonl"},
		{paper.MustIdentifier(paper.KindArXiv, "2106.15928"), "arxiv-2106.15928.cache.jsonl"},
		{paper.MustIdentifier(paper.KindDBLP, "conf/nips/VaswaniSPUJGKP17"), "dblp-conf-nips-VaswaniSPUJGKP17.cache.jsonl"},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.id))
		})
	}
}

func TestDefaultPathRespectsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	path, err := DefaultPath(doi("10.1/x"))
	require.NoError(t, err)
	if filepath.Dir(filepath.Dir(path)) == dir {
		assert.Equal(t, filepath.Join(dir, DirName, "doi-10.1-x.cache.jsonl"), path)
	}
}
