package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/matsen/citegraph/internal/paper"
	_ "modernc.org/sqlite"
)

// SQLiteBackend stores the cache in a SQLite database. Every Save is one
// transaction, so a crash leaves the previous state intact.
type SQLiteBackend struct {
	path string
	db   *sql.DB
}

// OpenSQLiteBackend opens or creates a SQLite cache at path.
func OpenSQLiteBackend(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteBackend{path: path, db: db}, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// createSchema creates the cache tables if they don't exist.
func createSchema(db execer) error {
	schema := `
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			paper_json TEXT,
			fetched_limit INTEGER,
			citations_json TEXT
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (b *SQLiteBackend) Path() string {
	return b.path
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Load reads all records. An empty database returns (nil, nil).
func (b *SQLiteBackend) Load() (*Snapshot, error) {
	var versionText string
	err := b.db.QueryRow(`SELECT value FROM meta WHERE key = 'version'`).Scan(&versionText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache version: %w", err)
	}

	version, err := strconv.Atoi(versionText)
	if err != nil {
		return nil, fmt.Errorf("parsing cache version %q: %w", versionText, err)
	}
	snap := &Snapshot{Version: version}
	if version != SchemaVersion {
		return snap, nil
	}

	var runsJSON string
	err = b.db.QueryRow(`SELECT value FROM meta WHERE key = 'runs'`).Scan(&runsJSON)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	if runsJSON != "" {
		if err := json.Unmarshal([]byte(runsJSON), &snap.Runs); err != nil {
			return nil, fmt.Errorf("parsing run history: %w", err)
		}
	}

	rows, err := b.db.Query(`SELECT id, paper_json, fetched_limit, citations_json FROM records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return snap, nil
}

// scanRecord decodes one row of the records table.
func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		idText        string
		paperJSON     sql.NullString
		fetchedLimit  sql.NullInt64
		citationsJSON sql.NullString
		rec           Record
	)
	if err := rows.Scan(&idText, &paperJSON, &fetchedLimit, &citationsJSON); err != nil {
		return Record{}, fmt.Errorf("scanning record: %w", err)
	}

	id, err := paper.ParseIdentifier(idText)
	if err != nil {
		return Record{}, fmt.Errorf("record %q: %w", idText, err)
	}
	rec.ID = id

	if paperJSON.Valid {
		if err := json.Unmarshal([]byte(paperJSON.String), &rec.Paper); err != nil {
			return Record{}, fmt.Errorf("parsing paper of %s: %w", idText, err)
		}
	}
	if fetchedLimit.Valid {
		rec.FetchedLimit = paper.IntPtr(int(fetchedLimit.Int64))
	}
	if citationsJSON.Valid {
		if err := json.Unmarshal([]byte(citationsJSON.String), &rec.Citations); err != nil {
			return Record{}, fmt.Errorf("parsing citations of %s: %w", idText, err)
		}
	}
	return rec, nil
}

// Save replaces all stored records in a single transaction. The tables are
// recreated first, so a database left behind by another schema version is
// overwritten instead of rejecting the insert.
func (b *SQLiteBackend) Save(s *Snapshot) (err error) {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	runsJSON, err := json.Marshal(s.Runs)
	if err != nil {
		return fmt.Errorf("marshaling run history: %w", err)
	}

	if _, err = tx.Exec(`DROP TABLE IF EXISTS records; DROP TABLE IF EXISTS meta;`); err != nil {
		return fmt.Errorf("dropping cache tables: %w", err)
	}
	if err = createSchema(tx); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	insertMeta := `INSERT INTO meta (key, value) VALUES (?, ?)`
	if _, err = tx.Exec(insertMeta, "version", strconv.Itoa(s.Version)); err != nil {
		return fmt.Errorf("writing cache version: %w", err)
	}
	if _, err = tx.Exec(insertMeta, "runs", string(runsJSON)); err != nil {
		return fmt.Errorf("writing run history: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records (id, position, paper_json, fetched_limit, citations_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range s.Records {
		var paperJSON, citationsJSON []byte
		if rec.HasMetadata() {
			if paperJSON, err = json.Marshal(rec.Paper); err != nil {
				return fmt.Errorf("marshaling paper %s: %w", rec.ID, err)
			}
		}
		if len(rec.Citations) > 0 {
			if citationsJSON, err = json.Marshal(rec.Citations); err != nil {
				return fmt.Errorf("marshaling citations of %s: %w", rec.ID, err)
			}
		}

		var limit sql.NullInt64
		if rec.FetchedLimit != nil {
			limit = sql.NullInt64{Int64: int64(*rec.FetchedLimit), Valid: true}
		}

		if _, err = stmt.Exec(rec.ID.String(), i, nullableString(paperJSON), limit, nullableString(citationsJSON)); err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing cache: %w", err)
	}
	return nil
}

// nullableString converts a byte slice to sql.NullString, treating empty as NULL.
func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
