package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"immo-scraper/models"
)

// CSVStore keeps the listing table in a local CSV file with a header row.
// It is safe for concurrent use.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

// NewCSVStore returns a store for the file at path. Intermediate directories
// are created automatically; the file itself appears on the first write.
func NewCSVStore(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVStore{path: path}, nil
}

func (c *CSVStore) ReadRows(ctx context.Context) ([]models.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", c.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	var rows []models.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}
		rows = append(rows, rowFromValues(header, rec))
	}
	return rows, nil
}

// WriteRows replaces the file. Rows go to a temporary file first which is
// then renamed over the old one.
func (c *CSVStore) WriteRows(ctx context.Context, rows []models.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", tmp, err)
	}

	if err := writeRecords(f, true, rows); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: close %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("csv: replace %q: %w", c.path, err)
	}
	return nil
}

func (c *CSVStore) AppendRows(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("csv: open %q: %w", c.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("csv: stat %q: %w", c.path, err)
	}
	return writeRecords(f, info.Size() == 0, rows)
}

// Close is a no-op; the file is opened per operation.
func (c *CSVStore) Close() error { return nil }

func writeRecords(w io.Writer, header bool, rows []models.Row) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(Columns); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
	}
	for _, r := range rows {
		if err := cw.Write(rowValues(r)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return nil
}
