package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jcolby/sprintloom/pkg/models"

	_ "modernc.org/sqlite"
)

// DB is a SQLite-backed Recorder.
type DB struct {
	conn *sql.DB
	path string
}

// DefaultDBPath returns the store path inside the project directory.
func DefaultDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".sprintloom", "records.db")
}

// Open opens a SQLite store at the given path, creating parent directories
// and the schema as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the store file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sprint_records (
		id TEXT PRIMARY KEY,
		sprint_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		phase TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		depends_on TEXT NOT NULL DEFAULT '',
		estimated_seconds INTEGER NOT NULL DEFAULT 0,
		priority INTEGER NOT NULL DEFAULT 0,
		claimed_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sprint_records_sprint ON sprint_records(sprint_id);
	CREATE INDEX IF NOT EXISTS idx_sprint_records_status ON sprint_records(status);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate store schema: %w", err)
	}
	return nil
}

// CreateSprintRecord inserts a record for the sprint and returns its id.
func (db *DB) CreateSprintRecord(ctx context.Context, sprint *models.Sprint) (string, error) {
	recordID := uuid.New().String()
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sprint_records
			(id, sprint_id, title, phase, status, depends_on, estimated_seconds, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recordID, sprint.ID, sprint.Title, string(sprint.Phase), string(sprint.Status),
		strings.Join(sprint.DependsOn, ","), int64(sprint.EstimatedDuration.Seconds()),
		sprint.Priority, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create sprint record: %w", err)
	}
	return recordID, nil
}

// UpdateSprintStatus updates the status of an existing record.
func (db *DB) UpdateSprintStatus(ctx context.Context, recordID string, status models.SprintStatus) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE sprint_records SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), recordID,
	)
	if err != nil {
		return fmt.Errorf("update sprint status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sprint status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update sprint status: record %s not found", recordID)
	}
	return nil
}

// ClaimSprintRecord marks the record as owned by the given worker.
func (db *DB) ClaimSprintRecord(ctx context.Context, recordID string, workerID string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE sprint_records SET claimed_by = ?, updated_at = ? WHERE id = ?`,
		workerID, time.Now().UTC(), recordID,
	)
	if err != nil {
		return fmt.Errorf("claim sprint record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim sprint record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("claim sprint record: record %s not found", recordID)
	}
	return nil
}

// RecordStatus reads back the stored status for a record. Used by tests and
// the CLI status view.
func (db *DB) RecordStatus(ctx context.Context, recordID string) (models.SprintStatus, error) {
	var status string
	err := db.conn.QueryRowContext(ctx,
		`SELECT status FROM sprint_records WHERE id = ?`, recordID).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("read sprint record: %w", err)
	}
	return models.SprintStatus(status), nil
}

// RecordOwner reads back the claiming worker for a record.
func (db *DB) RecordOwner(ctx context.Context, recordID string) (string, error) {
	var owner string
	err := db.conn.QueryRowContext(ctx,
		`SELECT claimed_by FROM sprint_records WHERE id = ?`, recordID).Scan(&owner)
	if err != nil {
		return "", fmt.Errorf("read sprint record: %w", err)
	}
	return owner, nil
}
