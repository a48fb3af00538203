package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pgx-risk-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a SQLite report store, creating the database file
// and schema if they don't exist
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// createSchema creates the reports table and indexes. The full report is
// stored as a JSON payload alongside the queryable columns.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		drug TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL,
		require_review INTEGER NOT NULL DEFAULT 0,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_patient ON reports(patient_id);
	CREATE INDEX IF NOT EXISTS idx_reports_drug ON reports(drug);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanReport scans a row's payload back into a report
func scanReport(s scanner) (*domain.Report, error) {
	var id, payload string
	if err := s.Scan(&id, &payload); err != nil {
		return nil, err
	}

	rpt := &domain.Report{}
	if err := json.Unmarshal([]byte(payload), rpt); err != nil {
		return nil, fmt.Errorf("failed to decode report payload: %w", err)
	}
	rpt.ID = id
	return rpt, nil
}

// Save stores a report, assigning it a new ID when it has none
func (s *SQLiteStore) Save(ctx context.Context, rpt *domain.Report) error {
	if rpt.ID == "" {
		rpt.ID = uuid.NewString()
	}

	payload, err := json.Marshal(rpt)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, patient_id, drug, action, severity, require_review, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			patient_id = excluded.patient_id,
			drug = excluded.drug,
			action = excluded.action,
			severity = excluded.severity,
			require_review = excluded.require_review,
			payload = excluded.payload
	`,
		rpt.ID,
		rpt.PatientID,
		rpt.Drug,
		string(rpt.RiskAssessment.RiskLabel),
		string(rpt.RiskAssessment.Severity),
		rpt.RequireManualReview,
		string(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// Get retrieves a report by ID, returning nil when it does not exist
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Report, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, payload FROM reports WHERE id = ? LIMIT 1", id)

	rpt, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rpt, nil
}

// List returns stored reports newest-first with pagination
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload FROM reports
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// ListByPatient returns a patient's reports newest-first
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload FROM reports
		WHERE patient_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

func collectReports(rows *sql.Rows) ([]*domain.Report, error) {
	var result []*domain.Report
	for rows.Next() {
		rpt, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rpt)
	}
	return result, rows.Err()
}

// Count returns the total number of stored reports
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&count)
	return count, err
}

// Delete removes a report by ID
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	return err
}

// ExportJSON exports all reports to a JSON writer
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportAll(ctx, s, writer)
}

// Close closes the store and releases resources
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
