package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pgx-risk-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStoreFromDB wraps an existing connection. The schema is created
// on startup if it does not exist.
func NewPostgresStoreFromDB(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := createPostgresSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore creates a PostgreSQL report store from a connection string
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStoreFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func createPostgresSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		drug TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL,
		require_review BOOLEAN NOT NULL DEFAULT FALSE,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_reports_patient ON reports(patient_id);
	CREATE INDEX IF NOT EXISTS idx_reports_drug ON reports(drug);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Save stores a report, assigning it a new ID when it has none
func (s *PostgresStore) Save(ctx context.Context, rpt *domain.Report) error {
	if rpt.ID == "" {
		rpt.ID = uuid.NewString()
	}

	payload, err := json.Marshal(rpt)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	query := `
		INSERT INTO reports (id, patient_id, drug, action, severity, require_review, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			drug = EXCLUDED.drug,
			action = EXCLUDED.action,
			severity = EXCLUDED.severity,
			require_review = EXCLUDED.require_review,
			payload = EXCLUDED.payload
	`
	_, err = s.db.ExecContext(ctx, query,
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
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Report, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, payload FROM reports WHERE id = $1 LIMIT 1", id)

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
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload FROM reports
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// ListByPatient returns a patient's reports newest-first
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload FROM reports
		WHERE patient_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// Count returns the total number of stored reports
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&count)
	return count, err
}

// Delete removes a report by ID
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id = $1", id)
	return err
}

// ExportJSON exports all reports to a JSON writer
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportAll(ctx, s, writer)
}

// Close closes the store and releases resources
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
