// Package sqlite is a store.Store persisting journals in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
	"github.com/signadot/treestate/store"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS journals (
	name TEXT PRIMARY KEY,
	seq INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
	name TEXT PRIMARY KEY,
	seq INTEGER NOT NULL,
	payload BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	name TEXT NOT NULL,
	seq INTEGER NOT NULL,
	payload BLOB NOT NULL,
	PRIMARY KEY (name, seq)
);`

// Store keeps snapshots and entries as JSON blobs.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ store.Store = (*Store)(nil)

// NewStore opens or creates the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "treestate.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, name string, seq int64, sn *ir.Node) (retErr error) {
	data, err := ir.ToJSON(sn)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots(name,seq,payload) VALUES(?,?,?) ON CONFLICT(name) DO UPDATE SET seq=excluded.seq, payload=excluded.payload`, name, seq, data); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO journals(name,seq) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET seq=max(seq, excluded.seq)`, name, seq); err != nil {
		return fmt.Errorf("upsert journal %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE name=? AND seq<=?`, name, seq); err != nil {
		return fmt.Errorf("compact %s: %w", name, err)
	}
	return tx.Commit()
}

func (s *Store) LoadSnapshot(ctx context.Context, name string) (*ir.Node, int64, error) {
	var (
		seq  int64
		data []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT seq, payload FROM snapshots WHERE name=?`, name).Scan(&seq, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, store.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("select snapshot %s: %w", name, err)
	}
	sn, err := ir.FromJSON(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return sn, seq, nil
}

func (s *Store) Append(ctx context.Context, name string, ps []patch.Patch) (seq int64, retErr error) {
	data, err := store.EncodePatches(ps)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	err = tx.QueryRowContext(ctx, `INSERT INTO journals(name,seq) VALUES(?,1) ON CONFLICT(name) DO UPDATE SET seq=seq+1 RETURNING seq`, name).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO entries(name,seq,payload) VALUES(?,?,?)`, name, seq, data); err != nil {
		return 0, fmt.Errorf("insert entry %s/%d: %w", name, seq, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *Store) Entries(ctx context.Context, name string, after int64) ([]store.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, payload FROM entries WHERE name=? AND seq>? ORDER BY seq`, name, after)
	if err != nil {
		return nil, fmt.Errorf("select entries %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()
	var res []store.Entry
	for rows.Next() {
		var (
			e    store.Entry
			data []byte
		)
		if err := rows.Scan(&e.Seq, &data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if e.Patches, err = store.DecodePatches(data); err != nil {
			return nil, fmt.Errorf("decode entry %s/%d: %w", name, e.Seq, err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (s *Store) Delete(ctx context.Context, name string) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, table := range []string{"entries", "snapshots", "journals"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE name=?`, name); err != nil {
			return fmt.Errorf("delete %s from %s: %w", name, table, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database path.
func (s *Store) Path() string { return s.path }
