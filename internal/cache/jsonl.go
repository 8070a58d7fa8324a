package cache

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading cache lines.
// A record with a few thousand citing ids stays well below it.
const MaxJSONLLineCapacity = 8 * 1024 * 1024

// Creator is written into the cache header.
const Creator = "citegraph"

// jsonlHeader is the first line of a JSONL cache file.
type jsonlHeader struct {
	Creator string    `json:"creator"`
	Version int       `json:"file_spec_version"`
	Runs    []RunInfo `json:"runs,omitempty"`
}

// JSONLBackend stores the cache as a header line followed by one record per
// line. Saves go to a temporary file that is renamed over the target, so a
// crash never leaves a half-written cache behind.
type JSONLBackend struct {
	path string
}

// NewJSONLBackend creates a backend for the given file path.
func NewJSONLBackend(path string) *JSONLBackend {
	return &JSONLBackend{path: path}
}

// Path returns the cache file path.
func (b *JSONLBackend) Path() string {
	return b.path
}

// Close is a no-op; the file is only open during Load and Save.
func (b *JSONLBackend) Close() error {
	return nil
}

// Load reads the cache file. A missing or empty file returns (nil, nil).
func (b *JSONLBackend) Load() (*Snapshot, error) {
	f, err := os.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening cache file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	var snap *Snapshot
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if snap == nil {
			var h jsonlHeader
			if err := json.Unmarshal(line, &h); err != nil {
				return nil, fmt.Errorf("parsing header: %w", err)
			}
			if h.Version != SchemaVersion {
				return &Snapshot{Version: h.Version}, nil
			}
			snap = &Snapshot{Version: h.Version, Runs: h.Runs}
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		snap.Records = append(snap.Records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	return snap, nil
}

// Save writes the snapshot to a temporary file and renames it into place.
func (b *JSONLBackend) Save(s *Snapshot) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary cache file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)

	if err := enc.Encode(jsonlHeader{Creator: Creator, Version: s.Version, Runs: s.Runs}); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding cache header: %w", err)
	}
	for i, rec := range s.Records {
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}

	if err := os.Rename(tmpPath, b.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}
