package immo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"immo-scraper/models"
	"immo-scraper/utils"
)

// PageFetcher retrieves one page of the search result list.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*models.RawPage, error)
}

// HTTPFetcher asks the search endpoint for JSON with a bodyless POST.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    *utils.Logger
}

// NewHTTPFetcher returns a fetcher using client, or a client without a
// timeout when nil. Cancellation comes from the caller's context.
func NewHTTPFetcher(client *http.Client, userAgent string, logger *utils.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{client: client, userAgent: userAgent, logger: logger}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*models.RawPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return nil, &models.TransportError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &models.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("[fetch] %s answered %d, parsing body anyway", url, resp.StatusCode)
	}
	return decodePage(url, body)
}

func decodePage(url string, body []byte) (*models.RawPage, error) {
	var page models.RawPage
	if err := json.Unmarshal(bytes.TrimSpace(body), &page); err != nil {
		return nil, &models.MalformedPageError{URL: url, Err: err}
	}
	return &page, nil
}
