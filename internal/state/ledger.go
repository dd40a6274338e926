// Package state keeps a SQLite ledger of applied renders: which run wrote
// which files for which target, and when.
package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mmlb/packethost-packet-networking/internal/clock"
)

// ErrNotFound is returned when a target has no recorded apply.
var ErrNotFound = errors.New("no apply recorded")

// File is one artifact as it was written.
type File struct {
	Path   string
	Mode   os.FileMode
	SHA256 string
	Action string
}

// NewFile fingerprints content for the ledger.
func NewFile(path string, content []byte, mode os.FileMode, action string) File {
	sum := sha256.Sum256(content)
	return File{Path: path, Mode: mode, SHA256: hex.EncodeToString(sum[:]), Action: action}
}

// Apply is one target written by one run.
type Apply struct {
	RunID     uuid.UUID
	Target    string
	RootFS    string
	AppliedAt time.Time
	Files     []File
}

// Options configures Open.
type Options struct {
	Path  string      // Database file path (":memory:" for in-memory)
	Clock clock.Clock // Optional: time source (defaults to RealClock if nil)
}

// Ledger is safe for concurrent use.
type Ledger struct {
	db    *sql.DB
	clock clock.Clock
}

// Open opens or creates the ledger database.
func Open(opts Options) (*Ledger, error) {
	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is private to its connection,
	// and the ledger never needs concurrent writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if opts.Path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma %q: %w", p, err)
		}
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	l := &Ledger{db: db, clock: clk}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS applies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			target TEXT NOT NULL,
			rootfs TEXT NOT NULL,
			applied_at INTEGER NOT NULL,
			UNIQUE (run_id, target)
		);

		CREATE TABLE IF NOT EXISTS files (
			apply_id INTEGER NOT NULL,
			path TEXT NOT NULL,
			mode INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			action TEXT NOT NULL,
			PRIMARY KEY (apply_id, path),
			FOREIGN KEY (apply_id) REFERENCES applies(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_applies_target ON applies(target, applied_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a. A zero AppliedAt is stamped from the ledger clock.
func (l *Ledger) Record(ctx context.Context, a Apply) (err error) {
	if a.AppliedAt.IsZero() {
		a.AppliedAt = l.clock.Now()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO applies (run_id, target, rootfs, applied_at) VALUES (?, ?, ?, ?)`,
		a.RunID.String(), a.Target, a.RootFS, a.AppliedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("record apply of %s: %w", a.Target, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, f := range a.Files {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO files (apply_id, path, mode, sha256, action) VALUES (?, ?, ?, ?, ?)`,
			id, f.Path, uint32(f.Mode), f.SHA256, f.Action); err != nil {
			return fmt.Errorf("record file %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

// Last returns the most recent apply of target.
func (l *Ledger) Last(ctx context.Context, target string) (*Apply, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, run_id, target, rootfs, applied_at FROM applies
		 WHERE target = ? ORDER BY applied_at DESC, id DESC LIMIT 1`, target)
	id, a, err := scanApply(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", target, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if a.Files, err = l.files(ctx, id); err != nil {
		return nil, err
	}
	return a, nil
}

// Latest returns the most recent apply of every target, sorted by target.
func (l *Ledger) Latest(ctx context.Context) ([]Apply, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, target, rootfs, applied_at FROM applies a
		 WHERE id = (SELECT b.id FROM applies b WHERE b.target = a.target
		             ORDER BY b.applied_at DESC, b.id DESC LIMIT 1)
		 ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("query applies: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var out []Apply
	for rows.Next() {
		id, a, err := scanApply(rows)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		if out[i].Files, err = l.files(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApply(s scanner) (int64, *Apply, error) {
	var (
		id    int64
		runID string
		nanos int64
		a     Apply
	)
	if err := s.Scan(&id, &runID, &a.Target, &a.RootFS, &nanos); err != nil {
		return 0, nil, err
	}
	u, err := uuid.Parse(runID)
	if err != nil {
		return 0, nil, fmt.Errorf("corrupt run id %q: %w", runID, err)
	}
	a.RunID = u
	a.AppliedAt = time.Unix(0, nanos).UTC()
	return id, &a, nil
}

func (l *Ledger) files(ctx context.Context, applyID int64) ([]File, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT path, mode, sha256, action FROM files WHERE apply_id = ? ORDER BY path`, applyID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var (
			f    File
			mode uint32
		)
		if err := rows.Scan(&f.Path, &mode, &f.SHA256, &f.Action); err != nil {
			return nil, err
		}
		f.Mode = os.FileMode(mode)
		out = append(out, f)
	}
	return out, rows.Err()
}
