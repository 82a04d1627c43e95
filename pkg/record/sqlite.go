package record

import (
	"database/sql"
	"fmt"

	// SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

const sqliteBatchSize = 1000

// SQLite writes samples to a SQLite database, batched into transactions.
type SQLite struct {
	db      *sql.DB
	pending []Sample
}

// NewSQLite opens (or creates) the database at path and creates the
// samples table.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			time             REAL,
			desired_position REAL,
			position         REAL,
			velocity         REAL,
			torque           REAL,
			mode             INTEGER,
			fault            INTEGER
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Add buffers the sample, flushing a transaction once the batch is full.
func (s *SQLite) Add(sample Sample) error {
	s.pending = append(s.pending, sample)
	if len(s.pending) >= sqliteBatchSize {
		return s.flush()
	}
	return nil
}

// Close flushes any pending samples and closes the database.
func (s *SQLite) Close() error {
	flushErr := s.flush()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return flushErr
}

func (s *SQLite) flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO samples VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sample := range s.pending {
		_, err := stmt.Exec(
			sample.Time,
			sample.Desired,
			sample.Position,
			sample.Velocity,
			sample.Torque,
			sample.Mode,
			sample.Fault,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	s.pending = s.pending[:0]
	return nil
}
