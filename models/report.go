package models

import "time"

// ScrapeStats are the counters of one assemble run.
type ScrapeStats struct {
	Success          int `json:"success"`
	ExchangeRejected int `json:"exchange_rejected"`
	WBSRejected      int `json:"wbs_rejected"`
	TotalListings    int `json:"total_listings"`
	PagesVisited     int `json:"pages_visited"`
}

// ScrapeResult is the output of the batch assembler.
type ScrapeResult struct {
	Listings *Batch
	Stats    ScrapeStats
}

// WriteMode tells the store how to apply an append set.
type WriteMode string

const (
	// ModeReplace rewrites the whole table (first run, nothing persisted yet).
	ModeReplace WriteMode = "replace"
	// ModeAppend adds the new listings after the existing rows.
	ModeAppend WriteMode = "append"
)

// AppendSet is the subset of a batch not present in the previous state.
type AppendSet struct {
	Mode     WriteMode
	Listings *Batch
}

// InsightReport holds analytics computed over the new listings of a run.
type InsightReport struct {
	TotalListings     int
	AverageHotRent    float64
	MinHotRent        float64
	MaxHotRent        float64
	AveragePricePerM2 float64
	BestScored        *Listing
	TopScored         []*Listing
	ListingsByQuarter map[string]int
}

// RunSummary describes one completed (or failed) pipeline run.
type RunSummary struct {
	RunID         string        `json:"run_id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	Stats         ScrapeStats   `json:"stats"`
	Mode          WriteMode     `json:"mode"`
	NewListings   int           `json:"new_listings"`
	AlertIDs      []string      `json:"alert_ids"`
	Notifications []string      `json:"notifications,omitempty"`
	Err           string        `json:"error,omitempty"`
}
