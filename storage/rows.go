package storage

import (
	"strconv"

	"immo-scraper/models"
)

// Columns is the persisted table header, in order.
var Columns = []string{
	"opinion",
	"application_state",
	"score",
	"cold_rent",
	"hot_rent",
	"size",
	"room_number",
	"quarter",
	"distance_center",
	"built_in_kitchen",
	"have_balcony",
	"url",
	"number_of_pics",
	"energy_efficiency",
	"maps_url",
	"address",
	"contact",
	"title",
	"id",
}

// ListingToRow renders a listing as a persisted row. The opinion column is
// left for the reader to fill in.
func ListingToRow(l *models.Listing, applicationState string) models.Row {
	return models.Row{
		"opinion":           "",
		"application_state": applicationState,
		"score":             formatFloat(l.Score),
		"cold_rent":         formatFloat(l.ColdRent),
		"hot_rent":          formatFloat(l.HotRent),
		"size":              formatFloat(l.Size),
		"room_number":       formatFloat(l.RoomNumber),
		"quarter":           l.Quarter,
		"distance_center":   formatFloat(l.DistanceToReference),
		"built_in_kitchen":  strconv.FormatBool(l.BuiltInKitchen),
		"have_balcony":      strconv.FormatBool(l.HaveBalcony),
		"url":               l.URL,
		"number_of_pics":    strconv.Itoa(l.PictureCount),
		"energy_efficiency": l.EnergyEfficiency,
		"maps_url":          l.MapsURL,
		"address":           l.Address.String(),
		"contact":           l.Contact.String(),
		"title":             l.Title,
		"id":                l.ID,
	}
}

// BatchToRows renders every listing of a batch, in batch order.
func BatchToRows(b *models.Batch, applicationState string) []models.Row {
	listings := b.Listings()
	rows := make([]models.Row, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, ListingToRow(l, applicationState))
	}
	return rows
}

// rowValues returns the cells of a row in Columns order.
func rowValues(r models.Row) []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = r[c]
	}
	return out
}

// rowFromValues maps cells onto header names. Missing trailing cells read
// as empty strings; extra cells are ignored.
func rowFromValues(header, values []string) models.Row {
	r := make(models.Row, len(header))
	for i, name := range header {
		if i < len(values) {
			r[name] = values[i]
		} else {
			r[name] = ""
		}
	}
	return r
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
