package models

import (
	"encoding/json"
	"testing"
)

func TestRawListingsAcceptsSingleObject(t *testing.T) {
	body := `{"searchResponseModel":{"resultlist.resultlist":{
		"paging":{"pageNumber":1},
		"resultlistEntries":[{"resultlistEntry":{"@id":"42","resultlist.realEstate":{"title":"Altbau"}}}]}}}`

	var page RawPage
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := page.Listings()
	if len(got) != 1 {
		t.Fatalf("listings: got %d, want 1", len(got))
	}
	if got[0].ID != "42" {
		t.Errorf("id: got %q, want %q", got[0].ID, "42")
	}
}

func TestRawPageWithoutEntries(t *testing.T) {
	var page RawPage
	if err := json.Unmarshal([]byte(`{"searchResponseModel":{"resultlist.resultlist":{"paging":{}}}}`), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n := len(page.Listings()); n != 0 {
		t.Errorf("listings: got %d, want 0", n)
	}

	var nilPage *RawPage
	if nilPage.Listings() != nil {
		t.Error("nil page should have no listings")
	}
}

func TestFlexStringNumberID(t *testing.T) {
	var l RawListing
	if err := json.Unmarshal([]byte(`{"@id": 150432871}`), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if l.ID != "150432871" {
		t.Errorf("id: got %q, want %q", l.ID, "150432871")
	}
}

func TestBatchLastWriteWins(t *testing.T) {
	b := NewBatch()
	b.Put(&Listing{ID: "a", Title: "first"})
	b.Put(&Listing{ID: "b"})
	b.Put(&Listing{ID: "a", Title: "second"})

	if b.Len() != 2 {
		t.Fatalf("len: got %d, want 2", b.Len())
	}
	ids := b.IDs()
	if ids[0] != "a" || ids[1] != "b" {
		t.Errorf("order: got %v, want [a b]", ids)
	}
	l, _ := b.Get("a")
	if l.Title != "second" {
		t.Errorf("title: got %q, want %q", l.Title, "second")
	}
}

func TestDocumentStringIsSorted(t *testing.T) {
	d := Document{"street": "Karl-Marx-Allee", "city": "Berlin"}
	want := `{"city":"Berlin","street":"Karl-Marx-Allee"}`
	if got := d.String(); got != want {
		t.Errorf("String(): got %s, want %s", got, want)
	}
	if got := Document(nil).String(); got != "{}" {
		t.Errorf("nil String(): got %s, want {}", got)
	}
}
