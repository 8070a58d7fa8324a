// Package cache is the durable, incrementally growing store of fetched papers
// and citation lists. Records from earlier runs are reused even when the
// run parameters differ; entries only ever grow.
package cache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/matsen/citegraph/internal/paper"
)

// SchemaVersion is the version of the cache file layout. Files with another
// version are discarded on load.
const SchemaVersion = 3

// MaxRuns bounds the run history kept in the cache header.
const MaxRuns = 20

// ErrSchemaMismatch is wrapped when a cache file has an unexpected version.
var ErrSchemaMismatch = errors.New("cache schema version mismatch")

// Backend persists snapshots of the store.
type Backend interface {
	// Load returns the stored snapshot, or (nil, nil) when nothing is stored yet.
	Load() (*Snapshot, error)
	// Save atomically replaces the stored state with s.
	Save(s *Snapshot) error
	// Path is the location of the durable storage.
	Path() string
	Close() error
}

// CorruptionError reports an unreadable cache that was discarded.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("discarded unreadable cache %s: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// Store maps identifiers to cache records. It is owned by one traversal at
// a time and is not safe for concurrent use.
type Store struct {
	backend Backend
	logger  *slog.Logger

	records map[paper.Identifier]*Record
	order   []paper.Identifier
	aliases map[paper.Identifier]paper.Identifier
	runs    []RunInfo
}

// New creates an empty store backed by backend. A nil logger discards logs.
func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{backend: backend, logger: logger}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.records = make(map[paper.Identifier]*Record)
	s.order = nil
	s.aliases = make(map[paper.Identifier]paper.Identifier)
}

// Path returns the location of the backing storage.
func (s *Store) Path() string {
	return s.backend.Path()
}

// Load replaces the in-memory state with the persisted one. A missing cache
// yields an empty store. An unreadable, truncated or version-mismatched cache
// is discarded with a warning; the returned *CorruptionError is informational
// and the store is always usable afterwards.
func (s *Store) Load() error {
	s.reset()
	s.runs = nil

	snap, err := s.backend.Load()
	if err == nil && snap != nil && snap.Version != SchemaVersion {
		err = fmt.Errorf("%w: found %d, want %d", ErrSchemaMismatch, snap.Version, SchemaVersion)
	}
	if err != nil {
		cerr := &CorruptionError{Path: s.backend.Path(), Err: err}
		s.logger.Warn("ignoring cache", "path", s.backend.Path(), "error", err)
		return cerr
	}
	if snap == nil {
		s.logger.Debug("no cache found", "path", s.backend.Path())
		return nil
	}

	for _, rec := range snap.Records {
		if rec.ID.IsZero() {
			continue
		}
		s.Put(rec)
	}
	s.runs = snap.Runs

	s.logger.Info("restored cache", "path", s.backend.Path(), "records", len(s.records))
	return nil
}

// Persist writes the whole store to the backend.
func (s *Store) Persist() error {
	snap := &Snapshot{
		Version: SchemaVersion,
		Runs:    s.runs,
		Records: make([]Record, 0, len(s.order)),
	}
	for _, id := range s.order {
		snap.Records = append(snap.Records, *s.records[id])
	}

	if err := s.backend.Save(snap); err != nil {
		return fmt.Errorf("persisting cache: %w", err)
	}
	s.logger.Debug("saved cache", "path", s.backend.Path(), "records", len(snap.Records))
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Clear removes all records. The run history is kept.
func (s *Store) Clear() {
	s.logger.Info("clearing cache", "path", s.backend.Path(), "records", len(s.records))
	s.reset()
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// resolve maps an external id to the primary id it is stored under.
func (s *Store) resolve(id paper.Identifier) paper.Identifier {
	if primary, ok := s.aliases[id]; ok {
		return primary
	}
	return id
}

// Get returns a copy of the record for id. Secondary external ids of a
// cached paper resolve to the same record.
func (s *Store) Get(id paper.Identifier) (Record, bool) {
	rec, ok := s.records[s.resolve(id)]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Put merges rec into the store. It never shrinks a record: the fetched limit
// is the maximum of old and new and the citation lists are united.
func (s *Store) Put(rec Record) {
	if rec.ID.IsZero() {
		rec.ID = rec.Paper.ID
	}
	key := s.resolve(rec.ID)

	existing, ok := s.records[key]
	if !ok {
		stored := rec.clone()
		stored.ID = key
		s.records[key] = &stored
		s.order = append(s.order, key)
	} else {
		existing.merge(rec.clone())
	}

	s.addAliases(key, rec.Paper)
}

func (s *Store) addAliases(key paper.Identifier, p paper.Paper) {
	for _, ext := range p.ExternalIDs {
		if ext == key {
			continue
		}
		if _, taken := s.records[ext]; taken {
			continue
		}
		if _, taken := s.aliases[ext]; !taken {
			s.aliases[ext] = key
		}
	}
}

// PutPaper stores paper metadata. Metadata of an already cached paper is not
// overwritten: the first successfully fetched record stays authoritative.
func (s *Store) PutPaper(p paper.Paper) {
	s.Put(Record{ID: p.ID, Paper: p})
}

// PutCitations records the citing papers fetched for id with the given limit
// and returns the merged record.
func (s *Store) PutCitations(id paper.Identifier, limit int, citing []paper.Identifier) Record {
	s.Put(Record{ID: id, FetchedLimit: paper.IntPtr(limit), Citations: citing})
	rec, _ := s.Get(id)
	return rec
}

// AddRun appends run metadata, keeping the last MaxRuns entries.
func (s *Store) AddRun(run RunInfo) {
	s.runs = append(s.runs, run)
	if len(s.runs) > MaxRuns {
		s.runs = s.runs[len(s.runs)-MaxRuns:]
	}
}

// Runs returns the recorded run history, oldest first.
func (s *Store) Runs() []RunInfo {
	return s.runs
}

// Stats summarizes the store contents.
type Stats struct {
	Records      int `json:"records"`
	WithMetadata int `json:"with_metadata"`
	Expanded     int `json:"expanded"`
	Citations    int `json:"citations"`
	Runs         int `json:"runs"`
}

// Stats returns counts over the current records.
func (s *Store) Stats() Stats {
	st := Stats{Records: len(s.records), Runs: len(s.runs)}
	for _, rec := range s.records {
		if rec.HasMetadata() {
			st.WithMetadata++
		}
		if rec.FetchedLimit != nil {
			st.Expanded++
		}
		st.Citations += len(rec.Citations)
	}
	return st
}
