package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"immo-scraper/models"
	"immo-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByQuarter: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []*models.Listing
	var totalPerM2 float64
	var sized int

	for _, l := range listings {
		if l.HotRent > 0 {
			priced = append(priced, l)
			if l.Size > 0 {
				totalPerM2 += l.HotRent / l.Size
				sized++
			}
		}
		if l.Quarter != "" {
			report.ListingsByQuarter[l.Quarter]++
		}
	}

	// Hot rent stats (only listings with a rent)
	if len(priced) > 0 {
		report.MinHotRent = priced[0].HotRent
		report.MaxHotRent = priced[0].HotRent
		var total float64
		for _, l := range priced {
			total += l.HotRent
			if l.HotRent < report.MinHotRent {
				report.MinHotRent = l.HotRent
			}
			if l.HotRent > report.MaxHotRent {
				report.MaxHotRent = l.HotRent
			}
		}
		report.AverageHotRent = round2(total / float64(len(priced)))
		report.MinHotRent = round2(report.MinHotRent)
		report.MaxHotRent = round2(report.MaxHotRent)
	}
	if sized > 0 {
		report.AveragePricePerM2 = round2(totalPerM2 / float64(sized))
	}

	// Top 5 by score, ties by id for a stable order
	scored := make([]*models.Listing, len(listings))
	copy(scored, listings)
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	report.BestScored = scored[0]
	if len(scored) > 5 {
		report.TopScored = scored[:5]
	} else {
		report.TopScored = scored
	}

	s.logger.Debug("[insights] %d new listings across %d quarters, best score %.1f",
		report.TotalListings, len(report.ListingsByQuarter), report.BestScored.Score)
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  NEW LISTINGS THIS RUN\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  New listings : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Total rent (per month)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AverageHotRent > 0 {
		fmt.Fprintf(w, "  Average rent : \033[1;32m%.2f €\033[0m\n", r.AverageHotRent)
		fmt.Fprintf(w, "  Minimum rent : \033[1;32m%.2f €\033[0m\n", r.MinHotRent)
		fmt.Fprintf(w, "  Maximum rent : \033[1;32m%.2f €\033[0m\n", r.MaxHotRent)
		fmt.Fprintf(w, "  Average €/m² : \033[1;32m%.2f\033[0m\n", r.AveragePricePerM2)
	} else {
		fmt.Fprintf(w, "  No rent data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top 5 Scored Listings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopScored) == 0 {
		fmt.Fprintf(w, "  No new listings\n")
	} else {
		for i, l := range r.TopScored {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%7.1f\033[0m %5.2f km\n",
				i+1, truncate(l.Title, 38), l.Score, l.DistanceToReference)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Quarter\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByQuarter) == 0 {
		fmt.Fprintf(w, "  No quarter data\n")
	} else {
		type quarterCount struct {
			quarter string
			count   int
		}
		var qs []quarterCount
		for q, cnt := range r.ListingsByQuarter {
			qs = append(qs, quarterCount{q, cnt})
		}
		sort.Slice(qs, func(i, j int) bool {
			if qs[i].count != qs[j].count {
				return qs[i].count > qs[j].count
			}
			return qs[i].quarter < qs[j].quarter
		})
		for _, qc := range qs {
			bar := strings.Repeat("█", qc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(qc.quarter, 28), bar, qc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
