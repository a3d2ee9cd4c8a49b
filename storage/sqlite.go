package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		label TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		probability REAL NOT NULL,
		features TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at);
	CREATE INDEX IF NOT EXISTS idx_scans_url ON scans(url);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveScan inserts scan, assigning an ID and timestamp when they are unset.
func (s *Storage) SaveScan(scan *Scan) error {
	if scan.ID == uuid.Nil {
		scan.ID = uuid.New()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}
	scan.CreatedAt = scan.CreatedAt.UTC()

	vector, err := json.Marshal(scan.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO scans (id, url, label, risk_level, probability, features, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, scan.ID.String(), scan.URL, scan.Label, scan.RiskLevel, scan.Probability, string(vector), scan.DurationMs, scan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}
	return nil
}

// GetScan retrieves a scan by ID, returns nil if not found
func (s *Storage) GetScan(id uuid.UUID) (*Scan, error) {
	row := s.db.QueryRow(`
		SELECT id, url, label, risk_level, probability, features, duration_ms, created_at
		FROM scans
		WHERE id = ?
	`, id.String())

	scan, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return scan, nil
}

// RecentScans returns up to limit scans, newest first.
func (s *Storage) RecentScans(limit int) ([]*Scan, error) {
	rows, err := s.db.Query(`
		SELECT id, url, label, risk_level, probability, features, duration_ms, created_at
		FROM scans
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent scans: %w", err)
	}
	defer rows.Close()

	scans := []*Scan{}
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, scan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scans: %w", err)
	}

	return scans, nil
}

// CountByLabel returns how many stored scans carry each label.
func (s *Storage) CountByLabel() (map[string]int, error) {
	rows, err := s.db.Query("SELECT label, COUNT(*) FROM scans GROUP BY label")
	if err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(r rowScanner) (*Scan, error) {
	var (
		scan   Scan
		id     string
		vector string
	)
	if err := r.Scan(&id, &scan.URL, &scan.Label, &scan.RiskLevel, &scan.Probability, &vector, &scan.DurationMs, &scan.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid scan id %q: %w", id, err)
	}
	scan.ID = parsed

	if err := json.Unmarshal([]byte(vector), &scan.Features); err != nil {
		return nil, fmt.Errorf("invalid features for scan %s: %w", id, err)
	}
	return &scan, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
