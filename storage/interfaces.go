package storage

import (
	"context"

	"immo-scraper/models"
)

// ListingStore is the interface any persisted-state backend must satisfy.
// Rows are keyed by the Columns header.
type ListingStore interface {
	// ReadRows returns every stored row, in stored order. An empty store
	// returns no rows and no error.
	ReadRows(ctx context.Context) ([]models.Row, error)
	// WriteRows replaces the stored table with rows.
	WriteRows(ctx context.Context, rows []models.Row) error
	// AppendRows adds rows after the existing ones.
	AppendRows(ctx context.Context, rows []models.Row) error
	Close() error
}
