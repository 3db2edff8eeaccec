package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"immo-scraper/models"
)

// AlertRule holds the thresholds a new listing must meet to be announced.
// All conditions apply at once.
type AlertRule struct {
	MinScore      float64 // exclusive
	MaxDistanceKm float64 // inclusive
	MaxHotRent    float64 // exclusive
}

// DefaultAlertRule returns the standard thresholds.
func DefaultAlertRule() AlertRule {
	return AlertRule{MinScore: 400, MaxDistanceKm: 4, MaxHotRent: 1200}
}

// Matches reports whether a listing qualifies for an alert.
func (r AlertRule) Matches(l *models.Listing) bool {
	return l.Score > r.MinScore &&
		l.DistanceToReference <= r.MaxDistanceKm &&
		l.HotRent < r.MaxHotRent
}

// SelectAlerts returns the sorted ids of the listings matching the rule.
func SelectAlerts(set *models.Batch, rule AlertRule) []string {
	ids := make([]string, 0)
	for _, l := range set.Listings() {
		if rule.Matches(l) {
			ids = append(ids, l.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// AlertMessage renders the chat message announcing one listing. Bold
// segments use *...* markup.
func AlertMessage(l *models.Listing) string {
	kitchen := "does not have a fitted kitchen"
	if l.BuiltInKitchen {
		kitchen = "has a fitted kitchen"
	}
	balcony := "does not have a balcony"
	if l.HaveBalcony {
		balcony = "has a balcony"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Apartment id: %s with %.1f points.\n", l.ID, l.Score)
	fmt.Fprintf(&b, "The apartment has *%gsqm* and *%g* rooms. The rent cost in total *%g* euros, ",
		l.Size, l.RoomNumber, l.HotRent)
	fmt.Fprintf(&b, "it is located in *%s* at *%.2f km* from the center. ", l.Quarter, l.DistanceToReference)
	fmt.Fprintf(&b, "It %s and %s. \n", kitchen, balcony)
	fmt.Fprintf(&b, "You can find more info at %s and the location in %s \n", l.URL, l.MapsURL)
	return b.String()
}

// SummaryMessage renders the end of run report sent to the bot chat.
func SummaryMessage(now time.Time, summary *models.RunSummary, report *models.InsightReport) string {
	s := summary.Stats

	var b strings.Builder
	fmt.Fprintf(&b, "These are the results of the process at %s \n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "There were %d success, %d exchange offers and %d WBS from a total of %d entries \n",
		s.Success, s.ExchangeRejected, s.WBSRejected, s.TotalListings)
	fmt.Fprintf(&b, "Found %d new entries in the new batch \n", summary.NewListings)
	if summary.Mode == models.ModeReplace {
		b.WriteString("No previous entries were stored, the table was loaded from scratch \n")
	}
	if report != nil && report.TotalListings > 0 {
		fmt.Fprintf(&b, "New entries cost *%.2f* euros on average (min %.2f, max %.2f) \n",
			report.AverageHotRent, report.MinHotRent, report.MaxHotRent)
		if report.BestScored != nil {
			fmt.Fprintf(&b, "Best new entry: %s with %.1f points \n", report.BestScored.URL, report.BestScored.Score)
		}
	}
	fmt.Fprintf(&b, "%d entries qualified for an alert \n", len(summary.AlertIDs))
	for _, n := range summary.Notifications {
		fmt.Fprintf(&b, "The responses to the notification is: ```%s``` \n", n)
	}
	return b.String()
}
