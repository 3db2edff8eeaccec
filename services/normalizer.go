package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"immo-scraper/models"
	"immo-scraper/utils"
)

// Title markers of listings that are never considered.
const (
	exchangeMarker = "tauschwohnung"
	wbsMarker      = "wbs"
)

// Normalizer maps raw listings into normalized listings.
type Normalizer struct {
	baseURL     string
	mapsBaseURL string
	logger      *utils.Logger
}

// NewNormalizer creates a Normalizer. baseURL is the site origin used for
// expose links, mapsBaseURL the map service used for location links.
func NewNormalizer(baseURL, mapsBaseURL string, logger *utils.Logger) *Normalizer {
	return &Normalizer{
		baseURL:     strings.TrimRight(baseURL, "/"),
		mapsBaseURL: strings.TrimRight(mapsBaseURL, "/"),
		logger:      logger,
	}
}

// Normalize maps one raw listing. Exactly one of the three results is
// non-nil: the listing, a rejection for excluded offers, or an error when a
// required field is missing.
func (n *Normalizer) Normalize(raw models.RawListing) (*models.Listing, *models.Rejection, error) {
	id := string(raw.ID)
	if id == "" {
		return nil, nil, &models.MalformedListingError{Field: "@id"}
	}
	re := raw.RealEstate
	if re == nil {
		return nil, nil, &models.MalformedListingError{ID: id, Field: "resultlist.realEstate"}
	}
	if re.Title == nil {
		return nil, nil, &models.MalformedListingError{ID: id, Field: "title"}
	}
	title := *re.Title

	lower := strings.ToLower(title)
	if strings.Contains(lower, exchangeMarker) {
		n.logger.Debug("[normalizer] %s is an exchange offer, rejected", id)
		return nil, models.RejectExchange, nil
	}
	if strings.Contains(lower, wbsMarker) {
		n.logger.Debug("[normalizer] %s requires WBS, rejected", id)
		return nil, models.RejectWBS, nil
	}

	address, coords, err := decodeAddress(id, re.Address)
	if err != nil {
		return nil, nil, err
	}

	l := &models.Listing{
		ID:               id,
		Title:            title,
		Address:          address,
		EnergyEfficiency: models.EnergyNotAvailable,
	}
	if coords.WGS84Coordinate != nil {
		l.Latitude = coords.WGS84Coordinate.Latitude
		l.Longitude = coords.WGS84Coordinate.Longitude
	}

	switch {
	case coords.Quarter == nil:
		return nil, nil, &models.MalformedListingError{ID: id, Field: "address.quarter"}
	case re.Price == nil || re.Price.Value == nil:
		return nil, nil, &models.MalformedListingError{ID: id, Field: "price.value"}
	case re.CalculatedTotalRent == nil || re.CalculatedTotalRent.TotalRent == nil ||
		re.CalculatedTotalRent.TotalRent.Value == nil:
		return nil, nil, &models.MalformedListingError{ID: id, Field: "calculatedTotalRent.totalRent.value"}
	case re.LivingSpace == nil:
		return nil, nil, &models.MalformedListingError{ID: id, Field: "livingSpace"}
	case re.NumberOfRooms == nil:
		return nil, nil, &models.MalformedListingError{ID: id, Field: "numberOfRooms"}
	case re.BuiltInKitchen == nil:
		return nil, nil, &models.MalformedListingError{ID: id, Field: "builtInKitchen"}
	case re.Balcony == nil:
		return nil, nil, &models.MalformedListingError{ID: id, Field: "balcony"}
	}

	l.Quarter = *coords.Quarter
	l.ColdRent = *re.Price.Value
	l.HotRent = *re.CalculatedTotalRent.TotalRent.Value
	l.Size = *re.LivingSpace
	l.RoomNumber = *re.NumberOfRooms
	l.BuiltInKitchen = *re.BuiltInKitchen
	l.HaveBalcony = *re.Balcony

	if re.EnergyEfficiencyClass != nil && *re.EnergyEfficiencyClass != "" {
		l.EnergyEfficiency = *re.EnergyEfficiencyClass
	}

	if isAbsent(re.ContactDetails) {
		return nil, nil, &models.MalformedListingError{ID: id, Field: "contactDetails"}
	}
	contact, err := decodeDocument(re.ContactDetails)
	if err != nil {
		return nil, nil, &models.MalformedListingError{ID: id, Field: "contactDetails"}
	}
	l.Contact = stripImageURLs(contact)

	if re.GalleryAttachments != nil {
		l.PictureCount = countAttachments(re.GalleryAttachments.Attachment)
	}

	l.URL = fmt.Sprintf("%s/expose/%s", n.baseURL, id)
	l.MapsURL = fmt.Sprintf("%s/@%s,%s,18z", n.mapsBaseURL, formatCoord(l.Latitude), formatCoord(l.Longitude))

	return l, nil, nil
}

func decodeAddress(id string, raw json.RawMessage) (models.Document, models.RawAddress, error) {
	var coords models.RawAddress
	if isAbsent(raw) {
		return nil, coords, &models.MalformedListingError{ID: id, Field: "address"}
	}
	if err := json.Unmarshal(raw, &coords); err != nil {
		return nil, coords, &models.MalformedListingError{ID: id, Field: "address"}
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, coords, &models.MalformedListingError{ID: id, Field: "address"}
	}
	return doc, coords, nil
}

// isAbsent reports a missing or null block.
func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeDocument decodes a JSON object, empty when absent. Numbers are kept as
// json.Number so the document re-encodes byte for byte.
func decodeDocument(raw json.RawMessage) (models.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.Document{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc models.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// stripImageURLs removes portrait and image links at any depth.
func stripImageURLs(doc models.Document) models.Document {
	for k, v := range doc {
		key := strings.ToLower(k)
		if strings.Contains(key, "portraiturl") || strings.Contains(key, "imageurl") {
			delete(doc, k)
			continue
		}
		doc[k] = stripValue(v)
	}
	return doc
}

func stripValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(stripImageURLs(models.Document(t)))
	case []any:
		for i := range t {
			t[i] = stripValue(t[i])
		}
		return t
	default:
		return v
	}
}

// countAttachments counts gallery entries; a single attachment may be sent
// as a bare object.
func countAttachments(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	if raw[0] == '{' {
		return 1
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return 0
	}
	return len(items)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
