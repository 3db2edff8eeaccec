package immo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"immo-scraper/models"
	"immo-scraper/utils"
)

// fetchScript issues the POST from inside the page so the request carries
// the cookies and headers of a real browser session.
const fetchScript = `fetch(%s, {method: "POST", headers: {"Accept": "application/json"}, credentials: "include"})
	.then(r => r.text().then(body => ({status: r.status, body: body})))`

// BrowserFetcher drives a headless Chrome tab. The tab opens the search
// origin once and then requests every page through fetch().
type BrowserFetcher struct {
	origin string
	logger *utils.Logger

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	mu     sync.Mutex
	opened bool
}

type browserResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// NewBrowserFetcher starts Chrome. chromeBin may be empty, in which case
// the usual install locations are searched.
func NewBrowserFetcher(origin, chromeBin, userAgent string, logger *utils.Logger) (*BrowserFetcher, error) {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// The first Run starts the browser and binds it to tabCtx, so later
	// per-request contexts can be cancelled without killing it.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	return &BrowserFetcher{
		origin:      origin,
		logger:      logger,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*models.RawPage, error) {
	runCtx, cancel := context.WithCancel(b.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := b.open(runCtx); err != nil {
		return nil, &models.TransportError{URL: b.origin, Err: err}
	}

	target, err := json.Marshal(url)
	if err != nil {
		return nil, &models.TransportError{URL: url, Err: err}
	}

	var res browserResponse
	err = chromedp.Run(runCtx,
		chromedp.Evaluate(fmt.Sprintf(fetchScript, target), &res,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}),
	)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &models.TransportError{URL: url, Err: err}
	}

	if res.Status < 200 || res.Status > 299 {
		b.logger.Warn("[browser] %s answered %d, parsing body anyway", url, res.Status)
	}
	return decodePage(url, []byte(res.Body))
}

// open navigates the tab to the origin the first time it is used.
func (b *BrowserFetcher) open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opened {
		return nil
	}

	b.logger.Info("[browser] Opening %s", b.origin)
	err := chromedp.Run(ctx,
		chromedp.Navigate(b.origin),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		return fmt.Errorf("open origin: %w", err)
	}
	b.opened = true
	return nil
}

// Close shuts the tab and the browser process down.
func (b *BrowserFetcher) Close() error {
	b.tabCancel()
	b.allocCancel()
	return nil
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
