package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"immo-scraper/metrics"
	"immo-scraper/models"
	"immo-scraper/notify"
	"immo-scraper/services"
	"immo-scraper/storage"
	"immo-scraper/utils"
)

// Assembler produces the listing batch of one scrape.
type Assembler interface {
	Assemble(ctx context.Context, startURL string) (*models.ScrapeResult, error)
}

// Notifier delivers a message to a set of chats.
type Notifier interface {
	Send(ctx context.Context, text string, recipients []string) []notify.Delivery
}

// Options are the per-deployment settings of a run.
type Options struct {
	SearchURL         string
	ApplicationState  string
	AlertRule         services.AlertRule
	AlertRecipients   []string
	SummaryRecipients []string
	// Report receives the console report of new listings; nil disables it.
	Report io.Writer
}

// Pipeline runs extract, load and notify for one search.
type Pipeline struct {
	assembler Assembler
	store     storage.ListingStore
	notifier  Notifier
	insights  *services.InsightService
	opts      Options
	logger    *utils.Logger
	now       func() time.Time

	mu   sync.RWMutex
	last *models.RunSummary
}

// New wires a pipeline. notifier may be nil when no bot is configured.
func New(assembler Assembler, store storage.ListingStore, notifier Notifier, opts Options, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		assembler: assembler,
		store:     store,
		notifier:  notifier,
		insights:  services.NewInsightService(logger),
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one full pass. The returned summary is also kept as the
// last run, including for failed runs.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	start := p.now()
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: start,
		AlertIDs:  []string{},
	}
	log := p.logger.With("run_id", summary.RunID)

	err := p.run(ctx, log, summary)

	summary.Duration = p.now().Sub(start)
	status := "ok"
	if err != nil {
		status = "error"
		summary.Err = err.Error()
		log.Error("[pipeline] Run failed after %v: %v", summary.Duration, err)
	} else {
		log.Info("[pipeline] Run finished in %v: %d new listings, %d alerts",
			summary.Duration, summary.NewListings, len(summary.AlertIDs))
	}
	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.RunDuration.Observe(summary.Duration.Seconds())
	metrics.LastRunTimestamp.Set(float64(p.now().Unix()))

	p.mu.Lock()
	p.last = summary
	p.mu.Unlock()

	return summary, err
}

func (p *Pipeline) run(ctx context.Context, log *utils.Logger, summary *models.RunSummary) error {
	// Extract
	res, err := p.assembler.Assemble(ctx, p.opts.SearchURL)
	if err != nil {
		return fmt.Errorf("pipeline: assemble: %w", err)
	}
	summary.Stats = res.Stats
	log.Info("[pipeline] %d success, %d exchange, %d WBS of %d listings",
		res.Stats.Success, res.Stats.ExchangeRejected, res.Stats.WBSRejected, res.Stats.TotalListings)

	// Load
	rows, err := p.store.ReadRows(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: read state: %w", err)
	}
	set := services.Diff(res.Listings, services.IndexByID(rows))
	summary.Mode = set.Mode
	summary.NewListings = set.Listings.Len()

	newRows := storage.BatchToRows(set.Listings, p.opts.ApplicationState)
	switch {
	case set.Mode == models.ModeReplace:
		log.Info("[pipeline] Store is empty, writing %d rows", len(newRows))
		if err := p.store.WriteRows(ctx, newRows); err != nil {
			return fmt.Errorf("pipeline: write rows: %w", err)
		}
	case len(newRows) > 0:
		log.Info("[pipeline] Appending %d new rows", len(newRows))
		if err := p.store.AppendRows(ctx, newRows); err != nil {
			return fmt.Errorf("pipeline: append rows: %w", err)
		}
	default:
		log.Info("[pipeline] No new listings")
	}
	metrics.NewListingsTotal.Add(float64(summary.NewListings))

	summary.AlertIDs = services.SelectAlerts(set.Listings, p.opts.AlertRule)
	report := p.insights.Generate(set.Listings.Listings())
	if p.opts.Report != nil && report.TotalListings > 0 {
		p.insights.Print(p.opts.Report, report)
	}

	// Notify
	if p.notifier == nil {
		return nil
	}
	for _, id := range summary.AlertIDs {
		l, _ := set.Listings.Get(id)
		p.record(summary, "alert", p.notifier.Send(ctx, services.AlertMessage(l), p.opts.AlertRecipients))
	}
	text := services.SummaryMessage(p.now(), summary, report)
	p.record(summary, "summary", p.notifier.Send(ctx, text, p.opts.SummaryRecipients))
	return nil
}

func (p *Pipeline) record(summary *models.RunSummary, kind string, deliveries []notify.Delivery) {
	for _, d := range deliveries {
		status := "ok"
		if d.Err != nil || !d.OK {
			status = "error"
		}
		metrics.NotificationsTotal.WithLabelValues(kind, status).Inc()
		summary.Notifications = append(summary.Notifications, d.String())
	}
}

// LastRun returns a copy of the most recent run summary, or nil before
// the first run.
func (p *Pipeline) LastRun() *models.RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	cp := *p.last
	return &cp
}
