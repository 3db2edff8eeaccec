package immo

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"immo-scraper/metrics"
	"immo-scraper/models"
	"immo-scraper/services"
	"immo-scraper/utils"
)

// Scraper walks the search result pages and assembles one Batch of
// normalized, scored listings.
type Scraper struct {
	fetcher    PageFetcher
	normalizer *services.Normalizer
	scorer     *services.Scorer
	base       *url.URL
	logger     *utils.Logger
}

// New creates a Scraper. Relative next links are resolved against baseURL.
func New(fetcher PageFetcher, normalizer *services.Normalizer, scorer *services.Scorer, baseURL string, logger *utils.Logger) (*Scraper, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("immo: parse base url %q: %w", baseURL, err)
	}
	return &Scraper{
		fetcher:    fetcher,
		normalizer: normalizer,
		scorer:     scorer,
		base:       base,
		logger:     logger,
	}, nil
}

// Assemble fetches the start page and every following page announced by
// its paging block. The page count is taken from the first page and not
// re-read afterwards.
func (s *Scraper) Assemble(ctx context.Context, startURL string) (*models.ScrapeResult, error) {
	result := &models.ScrapeResult{Listings: models.NewBatch()}
	visited := utils.NewKeySet()
	visited.Add(startURL)

	s.logger.Info("[immo] Starting scrape at %s", startURL)

	current := startURL
	page, state, err := s.load(ctx, current, &result.Stats)
	if err != nil {
		return nil, err
	}
	totalPages := state.TotalPages
	s.logger.Info("[immo] %d pages, %d listings announced", totalPages, state.TotalListings)

	for i := 1; i < totalPages; i++ {
		if err := s.collect(page, result); err != nil {
			return nil, err
		}

		if !state.HasNext() {
			return nil, &models.MalformedPageError{URL: current, Field: "paging.next"}
		}
		next, err := s.resolve(*state.NextLink)
		if err != nil {
			return nil, &models.MalformedPageError{URL: current, Field: "paging.next", Err: err}
		}
		if !visited.Add(next) {
			s.logger.Warn("[immo] Page %s was already visited", next)
		}

		current = next
		page, state, err = s.load(ctx, current, &result.Stats)
		if err != nil {
			return nil, err
		}
		s.logger.Info("[immo] Page %d/%d done, %d listings so far",
			i+1, totalPages, result.Listings.Len())
	}

	// The last fetched page has not been collected yet; a single page
	// search relies on this.
	if err := s.collect(page, result); err != nil {
		return nil, err
	}
	result.Stats.TotalListings = state.TotalListings

	s.logger.Info("[immo] Scrape complete: %d listings kept, %d exchange, %d WBS, %d announced",
		result.Stats.Success, result.Stats.ExchangeRejected, result.Stats.WBSRejected, result.Stats.TotalListings)
	return result, nil
}

// load fetches one page and reads its paging block.
func (s *Scraper) load(ctx context.Context, pageURL string, stats *models.ScrapeStats) (*models.RawPage, models.PagingState, error) {
	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		metrics.PagesFetchedTotal.WithLabelValues("error").Inc()
		return nil, models.PagingState{}, err
	}
	metrics.PagesFetchedTotal.WithLabelValues("ok").Inc()
	stats.PagesVisited++

	state, err := ReadPaging(page)
	if err != nil {
		var mErr *models.MalformedPageError
		if errors.As(err, &mErr) && mErr.URL == "" {
			mErr.URL = pageURL
		}
		return nil, models.PagingState{}, err
	}
	return page, state, nil
}

// collect normalizes and scores every listing of a page into the batch.
func (s *Scraper) collect(page *models.RawPage, result *models.ScrapeResult) error {
	for _, raw := range page.Listings() {
		l, rej, err := s.normalizer.Normalize(raw)
		if err != nil {
			return err
		}
		if rej != nil {
			switch rej {
			case models.RejectExchange:
				result.Stats.ExchangeRejected++
				metrics.ListingsTotal.WithLabelValues("exchange").Inc()
			case models.RejectWBS:
				result.Stats.WBSRejected++
				metrics.ListingsTotal.WithLabelValues("wbs").Inc()
			}
			s.logger.Debug("[immo] Listing %s rejected: %s", raw.ID, rej)
			continue
		}

		s.scorer.Apply(l)
		result.Listings.Put(l)
		result.Stats.Success++
		metrics.ListingsTotal.WithLabelValues("success").Inc()
	}
	return nil
}

func (s *Scraper) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return s.base.ResolveReference(ref).String(), nil
}
