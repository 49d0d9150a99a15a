package handleops

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Ledger records finished tasks so that an interrupted execute run
// can be restarted without repeating work.
type Ledger struct {
	conn *sql.DB
}

// OpenLedger opens (or creates) the done-task database inside the
// task folder.
func OpenLedger(folder string) (*Ledger, error) {
	path := filepath.Join(folder, "done_tasks.db")
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open task ledger %s: %w", path, err)
	}

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS done_tasks (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL
		)
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize task ledger: %w", err)
	}
	return &Ledger{conn: conn}, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.conn.Close()
}

// IsDone reports whether the task id is already recorded.
func (l *Ledger) IsDone(taskID string) (bool, error) {
	var id string
	err := l.conn.QueryRow(`SELECT id FROM done_tasks WHERE id = ?`, taskID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query task ledger: %w", err)
	}
	return true, nil
}

// MarkDone records a finished task.
func (l *Ledger) MarkDone(taskID string) error {
	_, err := l.conn.Exec(
		`INSERT INTO done_tasks (id, timestamp) VALUES (?, ?)`,
		taskID, time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record done task: %w", err)
	}
	return nil
}
