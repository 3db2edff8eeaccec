package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"immo-scraper/models"
)

func newTestCSVStore(t *testing.T) (*CSVStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out", "listings.csv")
	s, err := NewCSVStore(path)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}
	return s, path
}

func TestCSVStoreMissingFileIsEmpty(t *testing.T) {
	s, _ := newTestCSVStore(t)
	rows, err := s.ReadRows(context.Background())
	if err != nil || len(rows) != 0 {
		t.Errorf("ReadRows: got %d rows, err %v; want empty", len(rows), err)
	}
}

func TestCSVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := newTestCSVStore(t)

	first := []models.Row{ListingToRow(sampleListing("1"), "Abierto"), ListingToRow(sampleListing("2"), "Abierto")}
	if err := s.WriteRows(ctx, first); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	if err := s.AppendRows(ctx, []models.Row{ListingToRow(sampleListing("3"), "Abierto")}); err != nil {
		t.Fatalf("AppendRows: %v", err)
	}

	rows, err := s.ReadRows(ctx)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: got %d, want 3", len(rows))
	}
	for i, want := range []string{"1", "2", "3"} {
		if rows[i]["id"] != want {
			t.Errorf("row %d id: got %q, want %q", i, rows[i]["id"], want)
		}
	}
	if rows[0]["title"] != "Altbau, hell" || rows[0]["address"] != first[0]["address"] {
		t.Errorf("quoted fields changed: %v", rows[0])
	}

	raw, _ := os.ReadFile(path)
	if n := strings.Count(string(raw), "opinion,application_state"); n != 1 {
		t.Errorf("header written %d times", n)
	}
}

func TestCSVStoreWriteReplaces(t *testing.T) {
	ctx := context.Background()
	s, path := newTestCSVStore(t)

	_ = s.WriteRows(ctx, []models.Row{ListingToRow(sampleListing("1"), "Abierto")})
	if err := s.WriteRows(ctx, []models.Row{ListingToRow(sampleListing("9"), "Abierto")}); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	rows, _ := s.ReadRows(ctx)
	if len(rows) != 1 || rows[0]["id"] != "9" {
		t.Errorf("got %v, want only id 9", rows)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind")
	}
}

func TestCSVStoreAppendToEmptyWritesHeader(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCSVStore(t)

	if err := s.AppendRows(ctx, []models.Row{ListingToRow(sampleListing("5"), "Abierto")}); err != nil {
		t.Fatalf("AppendRows: %v", err)
	}
	rows, err := s.ReadRows(ctx)
	if err != nil || len(rows) != 1 || rows[0]["id"] != "5" {
		t.Errorf("got %v, err %v", rows, err)
	}
}

func TestCSVStoreShortRows(t *testing.T) {
	s, path := newTestCSVStore(t)
	if err := os.WriteFile(path, []byte("id,opinion,score\n1\n2,meh,300\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 || rows[0]["score"] != "" || rows[1]["opinion"] != "meh" {
		t.Errorf("got %v", rows)
	}
}
