package services

import (
	"immo-scraper/models"
)

// IndexByID indexes persisted rows by their id column. Rows without an id
// are skipped; a later row wins over an earlier one with the same id.
func IndexByID(rows []models.Row) models.PreviousState {
	state := make(models.PreviousState, len(rows))
	for _, r := range rows {
		id := r["id"]
		if id == "" {
			continue
		}
		state[id] = r
	}
	return state
}

// Diff returns the listings of current that are not in previous. With no
// previous state every listing is new and the set is flagged for a full
// replace of the store.
func Diff(current *models.Batch, previous models.PreviousState) models.AppendSet {
	if len(previous) == 0 {
		all := models.NewBatch()
		for _, l := range current.Listings() {
			all.Put(l)
		}
		return models.AppendSet{Mode: models.ModeReplace, Listings: all}
	}

	fresh := models.NewBatch()
	for _, l := range current.Listings() {
		if _, known := previous[l.ID]; known {
			continue
		}
		fresh.Put(l)
	}
	return models.AppendSet{Mode: models.ModeAppend, Listings: fresh}
}
