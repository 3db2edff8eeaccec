package models

import (
	"encoding/json"
)

// NoCoordinateDistance is the distance reported for listings without a
// usable coordinate.
const NoCoordinateDistance = 9999.0

// EnergyNotAvailable is the energy class of listings that do not state one.
const EnergyNotAvailable = "Not available"

// Listing is a normalized and scored listing, the unit persisted and
// compared between runs.
type Listing struct {
	ID                  string
	Title               string
	ColdRent            float64
	HotRent             float64
	Size                float64
	RoomNumber          float64
	Quarter             string
	Latitude            float64
	Longitude           float64
	DistanceToReference float64
	BuiltInKitchen      bool
	HaveBalcony         bool
	EnergyEfficiency    string
	PictureCount        int
	Score               float64
	URL                 string
	MapsURL             string
	Address             Document
	Contact             Document
}

// Document is an opaque key/value payload carried through unchanged.
type Document map[string]any

// String renders the document as JSON. Keys are sorted, so the output is
// stable across runs.
func (d Document) String() string {
	if d == nil {
		return "{}"
	}
	b, err := json.Marshal(map[string]any(d))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Batch maps listing ids to listings. Insertion order is retained so rows
// are persisted in the order the pages were read.
type Batch struct {
	byID  map[string]*Listing
	order []string
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{byID: make(map[string]*Listing)}
}

// Put stores a listing. A later listing with the same id replaces the
// earlier one in place.
func (b *Batch) Put(l *Listing) {
	if _, exists := b.byID[l.ID]; !exists {
		b.order = append(b.order, l.ID)
	}
	b.byID[l.ID] = l
}

// Get returns the listing with the given id.
func (b *Batch) Get(id string) (*Listing, bool) {
	l, ok := b.byID[id]
	return l, ok
}

// Len returns the number of listings.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

// IDs returns the ids in insertion order.
func (b *Batch) IDs() []string {
	if b == nil {
		return nil
	}
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Listings returns the listings in insertion order.
func (b *Batch) Listings() []*Listing {
	if b == nil {
		return nil
	}
	out := make([]*Listing, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.byID[id])
	}
	return out
}

// Row is one persisted record keyed by column name.
type Row map[string]string

// PreviousState maps listing ids to the rows persisted by earlier runs.
type PreviousState map[string]Row
