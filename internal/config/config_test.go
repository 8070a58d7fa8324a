package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	require.NoError(t, d.Validate())

	assert.Equal(t, 1, d.MaxDepth)
	assert.Equal(t, 300, d.MaxCitations)
	assert.Equal(t, 1.0, d.PolitenessFactor)
	assert.Equal(t, 10, d.MaxRequestErrors)
	assert.Equal(t, "semanticscholar", d.Database)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		field  string
	}{
		{"negative depth", func(o *Options) { o.MaxDepth = -1 }, KeyMaxDepth},
		{"negative citations", func(o *Options) { o.MaxCitations = -5 }, KeyMaxCitations},
		{"zero politeness", func(o *Options) { o.PolitenessFactor = 0 }, KeyPolitenessFactor},
		{"negative politeness", func(o *Options) { o.PolitenessFactor = -1 }, KeyPolitenessFactor},
		{"zero max errors", func(o *Options) { o.MaxRequestErrors = 0 }, KeyMaxRequestErrors},
		{"empty database", func(o *Options) { o.Database = "" }, KeyDatabase},
		{"unknown format", func(o *Options) { o.Format = "xml" }, KeyFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Defaults()
			tt.modify(&opts)

			err := opts.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidOption))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	opts := Defaults()
	opts.MaxDepth = -1
	opts.MaxRequestErrors = 0

	err := opts.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyMaxDepth)
	assert.Contains(t, err.Error(), KeyMaxRequestErrors)
}

func TestZeroBoundsAreValid(t *testing.T) {
	opts := Defaults()
	opts.MaxDepth = 0
	opts.MaxCitations = 0
	assert.NoError(t, opts.Validate())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "citegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_depth: 3
max_citations_per_paper: 50
politeness_factor: 2.5
exclude:
  - doi::10.1/x
cache_path: ~/graphs/root.db
`), 0644))
	t.Setenv("CITEGRAPH_MAX_REQUEST_ERRORS", "4")

	v := NewViper(path)
	require.NoError(t, ReadInConfig(v))
	opts, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 3, opts.MaxDepth)
	assert.Equal(t, 50, opts.MaxCitations)
	assert.Equal(t, 2.5, opts.PolitenessFactor)
	assert.Equal(t, 4, opts.MaxRequestErrors)
	assert.Equal(t, []string{"doi::10.1/x"}, opts.Exclude)
	assert.Equal(t, "semanticscholar", opts.Database)
	assert.False(t, strings.HasPrefix(opts.CachePath, "~"))
	assert.Equal(t, "root.db", filepath.Base(opts.CachePath))
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("politeness_factor: 0\n"), 0644))

	v := NewViper(path)
	require.NoError(t, ReadInConfig(v))
	_, err := Load(v)
	assert.True(t, errors.Is(err, ErrInvalidOption))
}

func TestReadInConfigMissingSearchFileIsFine(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	v := NewViper("")
	assert.NoError(t, ReadInConfig(v))

	opts, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), opts)
}

func TestReadInConfigMissingExplicitFile(t *testing.T) {
	v := NewViper(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, ReadInConfig(v))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	assert.Equal(t, filepath.Join(home, "x", "y"), ExpandPath("~/x/y"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	assert.Equal(t, "", ExpandPath(""))
}

func TestAsMap(t *testing.T) {
	m := Defaults().AsMap()
	assert.Equal(t, 1, m[KeyMaxDepth])
	assert.Equal(t, 300, m[KeyMaxCitations])
	assert.NotContains(t, m, KeyOutput)
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (unavailable before Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
