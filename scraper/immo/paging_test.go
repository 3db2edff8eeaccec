package immo

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"immo-scraper/models"
)

func decode(t *testing.T, body string) *models.RawPage {
	t.Helper()
	var p models.RawPage
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	return &p
}

func TestReadPaging(t *testing.T) {
	state, err := ReadPaging(decode(t, pageJSON(2, 7, 130, "/Suche?pagenumber=3")))
	if err != nil {
		t.Fatalf("ReadPaging: %v", err)
	}
	if state.PageNumber != 2 || state.PageSize != 20 || state.TotalPages != 7 || state.TotalListings != 130 {
		t.Errorf("state: got %+v", state)
	}
	if !state.HasNext() || *state.NextLink != "/Suche?pagenumber=3" {
		t.Errorf("NextLink: got %v", state.NextLink)
	}

	last, err := ReadPaging(decode(t, pageJSON(7, 7, 130, "")))
	if err != nil {
		t.Fatalf("ReadPaging: %v", err)
	}
	if last.HasNext() {
		t.Errorf("last page must not have a next link")
	}
}

func TestReadPagingMissingKeys(t *testing.T) {
	full := pageJSON(1, 1, 1, "")
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"empty", `{}`, "searchResponseModel"},
		{"no result list", `{"searchResponseModel": {}}`, "resultlist.resultlist"},
		{"no paging", `{"searchResponseModel": {"resultlist.resultlist": {}}}`, "paging"},
		{"no pageNumber", strings.Replace(full, `"pageNumber": 1, `, "", 1), "paging.pageNumber"},
		{"no numberOfPages", strings.Replace(full, `"numberOfPages": 1, `, "", 1), "paging.numberOfPages"},
		{"no numberOfListings", strings.Replace(full, `, "numberOfListings": 1`, "", 1), "paging.numberOfListings"},
	}

	for _, tt := range tests {
		_, err := ReadPaging(decode(t, tt.body))
		var mErr *models.MalformedPageError
		if !errors.As(err, &mErr) {
			t.Errorf("%s: got %v, want MalformedPageError", tt.name, err)
			continue
		}
		if mErr.Field != tt.field {
			t.Errorf("%s: field got %q, want %q", tt.name, mErr.Field, tt.field)
		}
	}
}
