package storage

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"immo-scraper/models"
)

const valueInputRaw = "RAW"

// SheetsStore keeps the listing table in a Google spreadsheet range. The
// first row of the range is the header.
type SheetsStore struct {
	svc     *sheets.Service
	sheetID string
	rng     string
}

// NewSheetsStore creates the Sheets client. Callers pass the credential
// option, e.g. option.WithCredentialsFile.
func NewSheetsStore(ctx context.Context, sheetID, rng string, opts ...option.ClientOption) (*SheetsStore, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &SheetsStore{svc: svc, sheetID: sheetID, rng: rng}, nil
}

func (s *SheetsStore) ReadRows(ctx context.Context) ([]models.Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.sheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s: %w", s.rng, err)
	}
	return rowsFromGrid(resp.Values), nil
}

// WriteRows clears the range and writes the header followed by rows.
func (s *SheetsStore) WriteRows(ctx context.Context, rows []models.Row) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.sheetID, s.rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: clear %s: %w", s.rng, err)
	}

	vr := &sheets.ValueRange{Values: gridFromRows(rows, true)}
	_, err = s.svc.Spreadsheets.Values.Update(s.sheetID, s.rng, vr).
		ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: update %s: %w", s.rng, err)
	}
	return nil
}

func (s *SheetsStore) AppendRows(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: gridFromRows(rows, false)}
	_, err := s.svc.Spreadsheets.Values.Append(s.sheetID, s.rng, vr).
		ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: append %s: %w", s.rng, err)
	}
	return nil
}

// Close is a no-op; the service holds no open resources.
func (s *SheetsStore) Close() error { return nil }

// rowsFromGrid turns a value grid into rows keyed by its first row. Sheets
// drops trailing empty cells, so short rows are padded.
func rowsFromGrid(grid [][]interface{}) []models.Row {
	if len(grid) == 0 {
		return nil
	}
	header := cellsToStrings(grid[0])
	rows := make([]models.Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		rows = append(rows, rowFromValues(header, cellsToStrings(cells)))
	}
	return rows
}

func gridFromRows(rows []models.Row, header bool) [][]interface{} {
	grid := make([][]interface{}, 0, len(rows)+1)
	if header {
		grid = append(grid, stringsToCells(Columns))
	}
	for _, r := range rows {
		grid = append(grid, stringsToCells(rowValues(r)))
	}
	return grid
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c != nil {
			out[i] = fmt.Sprint(c)
		}
	}
	return out
}

func stringsToCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
