package storage

import (
	"strings"
	"testing"

	"immo-scraper/models"
)

func sampleListing(id string) *models.Listing {
	return &models.Listing{
		ID: id, Title: "Altbau, hell", ColdRent: 820.5, HotRent: 1040, Size: 61.3, RoomNumber: 2,
		Quarter: "Mitte", DistanceToReference: 1.25, BuiltInKitchen: true, PictureCount: 4,
		EnergyEfficiency: "C", Score: 412.75,
		URL:     "https://www.immobilienscout24.de/expose/" + id,
		MapsURL: "https://www.google.com/maps/@52.52,13.4,18z",
		Address: models.Document{"street": "Karl-Marx-Allee", "quarter": "Mitte"},
	}
}

func TestListingToRow(t *testing.T) {
	r := ListingToRow(sampleListing("7"), "Abierto")

	if len(r) != len(Columns) {
		t.Fatalf("columns: got %d, want %d", len(r), len(Columns))
	}
	tests := map[string]string{
		"opinion":           "",
		"application_state": "Abierto",
		"score":             "412.75",
		"cold_rent":         "820.5",
		"hot_rent":          "1040",
		"room_number":       "2",
		"distance_center":   "1.25",
		"built_in_kitchen":  "true",
		"have_balcony":      "false",
		"number_of_pics":    "4",
		"address":           `{"quarter":"Mitte","street":"Karl-Marx-Allee"}`,
		"contact":           "{}",
		"id":                "7",
	}
	for col, want := range tests {
		if got := r[col]; got != want {
			t.Errorf("%s: got %q, want %q", col, got, want)
		}
	}
}

func TestRowFromValuesPadsShortRows(t *testing.T) {
	r := rowFromValues([]string{"a", "b", "c"}, []string{"1"})
	if r["a"] != "1" || r["b"] != "" || r["c"] != "" {
		t.Errorf("got %v", r)
	}
	if len(r) != 3 {
		t.Errorf("len: got %d, want 3", len(r))
	}
}

func TestRowValuesOrder(t *testing.T) {
	vals := rowValues(ListingToRow(sampleListing("7"), "Abierto"))
	if vals[len(vals)-1] != "7" || vals[1] != "Abierto" {
		t.Errorf("unexpected order: %v", vals)
	}
}

func TestBuildInsert(t *testing.T) {
	rows := []models.Row{{"id": "1"}, {"id": "2"}}
	query, args, err := buildInsert(rows)
	if err != nil {
		t.Fatalf("buildInsert: %v", err)
	}
	if len(args) != 4 {
		t.Errorf("args: got %d, want 4", len(args))
	}
	if args[0] != "1" || args[1] != `{"id":"1"}` {
		t.Errorf("first row args: got %v, %v", args[0], args[1])
	}
	for _, want := range []string{"($1,$2::jsonb),($3,$4::jsonb)", "ON CONFLICT (id) DO NOTHING"} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}
}
