// Package store provides SQLite-backed persistence for the tracker.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/tracker/internal/manager"
	"github.com/fentz26/tracker/internal/models"
	_ "modernc.org/sqlite"
)

// Store provides access to the tracker's SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'NEW',
		epic_id INTEGER,
		start_time DATETIME,
		duration_min INTEGER
	);

	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		item_id INTEGER,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);
	CREATE INDEX IF NOT EXISTS idx_journal_timestamp ON journal(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Snapshot Operations ---

// SaveSnapshot replaces every stored item with the contents of snap in a
// single transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap manager.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (id, kind, name, description, status, epic_id, start_time, duration_min) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	insert := func(kind models.Kind, t *models.Task, epicID sql.NullInt64) error {
		start, minutes := encodeWindow(t)
		_, err := stmt.ExecContext(ctx, t.ID, kind, t.Name, t.Description, t.Status, epicID, start, minutes)
		if err != nil {
			return fmt.Errorf("insert %s %d: %w", kind, t.ID, err)
		}
		return nil
	}

	// Epics go first so a reader walking rows in order never meets an orphan.
	for i := range snap.Epics {
		e := &snap.Epics[i]
		// Derived fields are recomputed on load; only identity and text persist.
		bare := models.Task{ID: e.ID, Name: e.Name, Description: e.Description, Status: e.Status}
		if err := insert(models.KindEpic, &bare, sql.NullInt64{}); err != nil {
			return err
		}
	}
	for i := range snap.Tasks {
		if err := insert(models.KindTask, &snap.Tasks[i], sql.NullInt64{}); err != nil {
			return err
		}
	}
	for i := range snap.Subtasks {
		sub := &snap.Subtasks[i]
		if err := insert(models.KindSubtask, &sub.Task, sql.NullInt64{Int64: int64(sub.EpicID), Valid: true}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadSnapshot reads every stored item.
func (s *Store) LoadSnapshot(ctx context.Context) (manager.Snapshot, error) {
	var snap manager.Snapshot

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, name, description, status, epic_id, start_time, duration_min FROM items ORDER BY id`,
	)
	if err != nil {
		return snap, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t           models.Task
			kind        models.Kind
			description sql.NullString
			epicID      sql.NullInt64
			start       sql.NullTime
			minutes     sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &kind, &t.Name, &description, &t.Status, &epicID, &start, &minutes); err != nil {
			return snap, fmt.Errorf("scan item: %w", err)
		}
		if description.Valid {
			t.Description = description.String
		}
		decodeWindow(&t, start, minutes)

		switch kind {
		case models.KindTask:
			snap.Tasks = append(snap.Tasks, t)
		case models.KindEpic:
			snap.Epics = append(snap.Epics, models.Epic{Task: t})
		case models.KindSubtask:
			if !epicID.Valid {
				return snap, fmt.Errorf("subtask %d has no epic", t.ID)
			}
			snap.Subtasks = append(snap.Subtasks, models.Subtask{Task: t, EpicID: int(epicID.Int64)})
		default:
			return snap, fmt.Errorf("item %d: unknown kind %q", t.ID, kind)
		}
	}
	return snap, rows.Err()
}

// encodeWindow stores durations as whole minutes, matching the wire format.
func encodeWindow(t *models.Task) (sql.NullTime, sql.NullInt64) {
	var start sql.NullTime
	var minutes sql.NullInt64
	if t.StartTime != nil {
		start = sql.NullTime{Time: t.StartTime.UTC(), Valid: true}
	}
	if t.Duration != nil {
		minutes = sql.NullInt64{Int64: int64(*t.Duration / time.Minute), Valid: true}
	}
	return start, minutes
}

func decodeWindow(t *models.Task, start sql.NullTime, minutes sql.NullInt64) {
	if start.Valid {
		st := start.Time.UTC()
		t.StartTime = &st
	}
	if minutes.Valid {
		d := time.Duration(minutes.Int64) * time.Minute
		t.Duration = &d
	}
}
