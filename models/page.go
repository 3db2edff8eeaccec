package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RawPage is one decoded page of the search result list. It is consumed by
// the paging reader and the normalizer and then discarded.
type RawPage struct {
	SearchResponseModel *struct {
		ResultList *RawResultList `json:"resultlist.resultlist"`
	} `json:"searchResponseModel"`
}

// RawResultList is the result list block of a page.
type RawResultList struct {
	Paging  *RawPaging        `json:"paging"`
	Entries []RawEntriesGroup `json:"resultlistEntries"`
}

// RawPaging mirrors the paging block. All counters are pointers so that a
// missing key can be told apart from a zero.
type RawPaging struct {
	PageNumber       *int `json:"pageNumber"`
	PageSize         *int `json:"pageSize"`
	NumberOfPages    *int `json:"numberOfPages"`
	NumberOfHits     *int `json:"numberOfHits"`
	NumberOfListings *int `json:"numberOfListings"`
	Next             *struct {
		Href string `json:"@xlink.href"`
	} `json:"next"`
}

// RawEntriesGroup holds the listing records of a page.
type RawEntriesGroup struct {
	Entries RawListings `json:"resultlistEntry"`
}

// RawListings decodes either an array of listings or, when the page
// carries exactly one listing, a bare object.
type RawListings []RawListing

func (r *RawListings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}
	if data[0] == '{' {
		var one RawListing
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*r = RawListings{one}
		return nil
	}
	var many []RawListing
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

// Listings returns the raw listings of the page, or nil when the search
// has no hits.
func (p *RawPage) Listings() []RawListing {
	if p == nil || p.SearchResponseModel == nil || p.SearchResponseModel.ResultList == nil {
		return nil
	}
	groups := p.SearchResponseModel.ResultList.Entries
	if len(groups) == 0 {
		return nil
	}
	return groups[0].Entries
}

// RawListing is one unprocessed listing record.
type RawListing struct {
	ID         FlexString     `json:"@id"`
	RealEstate *RawRealEstate `json:"resultlist.realEstate"`
}

// RawRealEstate holds the real estate fields consumed by the normalizer.
// Address and contact details are kept raw and decoded on demand.
type RawRealEstate struct {
	Title                 *string         `json:"title"`
	Address               json.RawMessage `json:"address"`
	Price                 *RawAmount      `json:"price"`
	CalculatedTotalRent   *RawTotalRent   `json:"calculatedTotalRent"`
	LivingSpace           *float64        `json:"livingSpace"`
	NumberOfRooms         *float64        `json:"numberOfRooms"`
	BuiltInKitchen        *bool           `json:"builtInKitchen"`
	Balcony               *bool           `json:"balcony"`
	EnergyEfficiencyClass *string         `json:"energyEfficiencyClass"`
	ContactDetails        json.RawMessage `json:"contactDetails"`
	GalleryAttachments    *struct {
		Attachment json.RawMessage `json:"attachment"`
	} `json:"galleryAttachments"`
}

// RawAmount is a price value block.
type RawAmount struct {
	Value    *float64 `json:"value"`
	Currency string   `json:"currency"`
}

// RawTotalRent wraps the calculated total (warm) rent.
type RawTotalRent struct {
	TotalRent *RawAmount `json:"totalRent"`
}

// RawAddress is the part of the address block the normalizer reads.
type RawAddress struct {
	Quarter         *string `json:"quarter"`
	WGS84Coordinate *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"wgs84Coordinate"`
}

// FlexString accepts a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// PagingState is the pagination state derived from one page.
type PagingState struct {
	PageNumber    int
	PageSize      int
	TotalPages    int
	TotalHits     int
	TotalListings int
	NextLink      *string
}

// HasNext reports whether the page links to a following page.
func (p PagingState) HasNext() bool {
	return p.NextLink != nil && *p.NextLink != ""
}
