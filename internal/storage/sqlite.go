package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/klabast/wb-services/admission-board/internal/events"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	event_id   INTEGER PRIMARY KEY,
	sort_order INTEGER NOT NULL DEFAULT 0,
	program    TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	start_date TEXT NOT NULL,
	end_date   TEXT NOT NULL,
	start_time TEXT NOT NULL DEFAULT '',
	end_time   TEXT NOT NULL DEFAULT '',
	all_day    INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS board_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

const metaLastID = "last_id"

// SQLiteFile stores events in a single-file SQLite database. Saves run in one
// transaction, so an interrupted save leaves the previous collection intact.
type SQLiteFile struct {
	path   string
	sqlDB  *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteFile{path: cleanPath, sqlDB: sqlDB, logger: logger}, nil
}

// Close closes the underlying database
func (s *SQLiteFile) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Describe names the medium for logs
func (s *SQLiteFile) Describe() string {
	return "sqlite:" + s.path
}

// Load reads every event row. Rows whose dates no longer parse are dropped.
func (s *SQLiteFile) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT event_id, sort_order, program, category, title,
		       start_date, end_date, start_time, end_time, all_day
		FROM events ORDER BY rowid`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var (
			e                  events.Event
			program, category  string
			startDate, endDate string
		)
		if err := rows.Scan(&e.ID, &e.Order, &program, &category, &e.Title,
			&startDate, &endDate, &e.StartTime, &e.EndTime, &e.AllDay); err != nil {
			return Snapshot{}, fmt.Errorf("scan event: %w", err)
		}
		snap.Report.Rows++

		start, err := events.ParseDate(startDate)
		if err != nil {
			snap.Report.Dropped++
			continue
		}
		end, err := events.ParseDate(endDate)
		if err != nil {
			snap.Report.Dropped++
			continue
		}
		e.StartDate, e.EndDate = start, end
		e.Program = events.Program(program)
		e.Category = events.Category(category)
		snap.Events = append(snap.Events, e)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate events: %w", err)
	}

	err = s.sqlDB.QueryRowContext(ctx, `SELECT value FROM board_meta WHERE key = ?`, metaLastID).Scan(&snap.LastID)
	if err != nil && err != sql.ErrNoRows {
		return Snapshot{}, fmt.Errorf("read meta: %w", err)
	}
	return snap, nil
}

// Save replaces every row inside a single transaction
func (s *SQLiteFile) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (event_id, sort_order, program, category, title,
		                    start_date, end_date, start_time, end_time, all_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range snap.Events {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Order, string(e.Program), string(e.Category), e.Title,
			e.StartDate.Format(events.DateLayout), e.EndDate.Format(events.DateLayout),
			e.StartTime, e.EndTime, e.AllDay); err != nil {
			return fmt.Errorf("insert event %d: %w", e.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO board_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, metaLastID, snap.LastID); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}

	return tx.Commit()
}
