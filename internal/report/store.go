// Package report persists finished drug-risk reports so past annotations can
// be retrieved and audited. SQLite serves single-node deployments, Postgres
// shared ones.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pgx-risk-server/internal/domain"
)

// Store is the persistence interface for annotation reports
type Store interface {
	// Save stores a report and fills in its storage ID
	Save(ctx context.Context, rpt *domain.Report) error
	// Get retrieves a report by its storage ID, nil when absent
	Get(ctx context.Context, id string) (*domain.Report, error)
	// List returns stored reports newest-first with pagination
	List(ctx context.Context, limit, offset int) ([]*domain.Report, error)
	// ListByPatient returns a patient's reports newest-first
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.Report, error)
	// Count returns the total number of stored reports
	Count(ctx context.Context) (int64, error)
	// Delete removes a report by ID
	Delete(ctx context.Context, id string) error
	// ExportJSON writes every stored report to writer as a JSON document
	ExportJSON(ctx context.Context, writer io.Writer) error
	// Close releases the store's resources
	Close() error
}

// Export is the JSON envelope written by ExportJSON
type Export struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Count      int              `json:"count"`
	Reports    []*domain.Report `json:"reports"`
}

// maxExportLimit is the maximum number of reports exported at once
const maxExportLimit = 1000000

// New creates a store for the configured driver
func New(cfg domain.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLiteStore(cfg.Path)
	case "postgres":
		return NewPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func exportAll(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Reports:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
